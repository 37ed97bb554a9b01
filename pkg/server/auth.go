package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/homewatts/homewatts/pkg/log"
	"github.com/homewatts/homewatts/pkg/types"
)

const authTokenCookie = "auth_token"

type contextKey string

const userContextKey contextKey = "user"

// tokenVerifier is a function that validates a Google ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// googleVerifier builds a verifier against Google's OIDC provider for the
// given audience. Failure to reach the provider at startup is fatal.
func googleVerifier(audience string) tokenVerifier {
	provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
	if err != nil {
		log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
		os.Exit(1)
	}
	return provider.Verifier(&oidc.Config{ClientID: audience}).Verify
}

// authMiddleware resolves the calling user from the auth cookie or a bearer
// token and stores it in the request context. With bypass auth enabled the
// configured development user is used instead.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		if s.bypassAuth {
			ctx = context.WithValue(ctx, userContextKey, types.User{ID: s.bypassUserID})
			ctx = log.WithUser(ctx, s.bypassUserID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if s.verifier == nil {
			log.Ctx(ctx).ErrorContext(ctx, "no oidc audience configured and bypass auth disabled")
			writeJSONError(w, "authentication not configured", http.StatusInternalServerError)
			return
		}

		token := bearerToken(r)
		if token == "" {
			authCookie, err := r.Cookie(authTokenCookie)
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				log.Ctx(ctx).ErrorContext(ctx, "failed to get auth cookie", slog.Any("error", err))
				writeJSONError(w, "missing auth cookie", http.StatusBadRequest)
				return
			}
			if authCookie != nil {
				token = authCookie.Value
			}
		}
		if token == "" {
			log.Ctx(ctx).WarnContext(ctx, "unauthenticated request")
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		idToken, err := s.verifier(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}

		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse token claims", slog.Any("error", err))
			writeJSONError(w, "invalid oidc claims", http.StatusUnauthorized)
			return
		}

		user := types.User{ID: idToken.Subject, Email: claims.Email}
		ctx = context.WithValue(ctx, userContextKey, user)
		ctx = log.WithUser(ctx, user.ID)

		log.Ctx(ctx).DebugContext(ctx, "authenticated request", slog.String("email", user.Email))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (s *Server) getUser(r *http.Request) types.User {
	if user, ok := r.Context().Value(userContextKey).(types.User); ok {
		return user
	}
	return types.User{}
}
