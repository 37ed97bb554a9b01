package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/homewatts/homewatts/pkg/log"
	"github.com/homewatts/homewatts/pkg/types"
)

// Firestore collection names under users/{userID}/.
const (
	collEnergySamples   = "energy_samples"
	collWeatherSamples  = "weather_samples"
	collPriceSamples    = "price_samples"
	collEnergyLog       = "energy_log"
	collSolarLog        = "solar_log"
	collDevices         = "devices"
	collConfig          = "config"
	collRecommendations = "recommendations"
	collForecasts       = "forecasts"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Rows are stored as JSON blobs keyed by RFC3339 timestamps so
// time ranges become document-ID range queries.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) userCollection(userID, name string) (*firestore.CollectionRef, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}
	return f.client.Collection("users").Doc(userID).Collection(name), nil
}

// insertTimestamped writes v as a JSON blob keyed by the RFC3339 timestamp.
func insertTimestamped[T any](ctx context.Context, coll *firestore.CollectionRef, ts time.Time, v T) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s row: %w", coll.ID, err)
	}
	docID := ts.UTC().Format(time.RFC3339)
	_, err = coll.Doc(docID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": ts,
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s row: %w", coll.ID, err)
	}
	return nil
}

// queryRange reads all JSON-blob rows with [start, end) document IDs.
func queryRange[T any](ctx context.Context, coll *firestore.CollectionRef, start, end time.Time) ([]T, error) {
	startDocID := start.UTC().Format(time.RFC3339)
	endDocID := end.UTC().Format(time.RFC3339)

	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var rows []T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating %s: %w", coll.ID, err)
		}
		row, err := decodeRow[T](ctx, doc)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// latestRow returns the most recent JSON-blob row by the timestamp field.
func latestRow[T any](ctx context.Context, coll *firestore.CollectionRef) (T, error) {
	var zero T

	// firestore automatically creates indexes for top-level fields
	iter := coll.
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return zero, ErrNoSamples
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get latest %s doc: %w", coll.ID, err)
	}
	return decodeRow[T](ctx, doc)
}

func decodeRow[T any](ctx context.Context, doc *firestore.DocumentSnapshot) (T, error) {
	var zero T
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return zero, fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("docID", doc.Ref.ID))
		return zero, fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	var row T
	if err := json.Unmarshal([]byte(jsonStr), &row); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return zero, fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return row, nil
}

// deleteAll removes every document in a collection with a bulk writer.
func (f *FirestoreProvider) deleteAll(ctx context.Context, coll *firestore.CollectionRef) error {
	iter := coll.Documents(ctx)
	defer iter.Stop()

	bw := f.client.BulkWriter(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("error iterating %s for delete: %w", coll.ID, err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return fmt.Errorf("failed to queue delete in %s: %w", coll.ID, err)
		}
	}
	bw.End()
	return nil
}

// deleteBefore removes documents with IDs lexicographically below cutoff.
func (f *FirestoreProvider) deleteBefore(ctx context.Context, coll *firestore.CollectionRef, cutoff time.Time) error {
	cutoffDocID := cutoff.UTC().Format(time.RFC3339)
	iter := coll.
		Where(firestore.DocumentID, "<", coll.Doc(cutoffDocID)).
		Documents(ctx)
	defer iter.Stop()

	bw := f.client.BulkWriter(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("error iterating %s for retention: %w", coll.ID, err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return fmt.Errorf("failed to queue retention delete in %s: %w", coll.ID, err)
		}
	}
	bw.End()
	return nil
}

// GetProfile retrieves the household profile from the "config/profile"
// document. A missing document is not an error: callers get the zero
// profile and version 0 and apply defaults via migration.
func (f *FirestoreProvider) GetProfile(ctx context.Context, userID string) (types.Profile, int, error) {
	coll, err := f.userCollection(userID, collConfig)
	if err != nil {
		return types.Profile{}, 0, err
	}
	doc, err := coll.Doc("profile").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Profile{}, 0, nil
		}
		return types.Profile{}, 0, fmt.Errorf("failed to fetch profile doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	profile, err := decodeRow[types.Profile](ctx, doc)
	if err != nil {
		return types.Profile{}, 0, err
	}
	return profile, version, nil
}

// SetProfile saves the household profile to the "config/profile" document.
func (f *FirestoreProvider) SetProfile(ctx context.Context, userID string, profile types.Profile, version int) error {
	jsonBytes, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	coll, err := f.userCollection(userID, collConfig)
	if err != nil {
		return err
	}
	_, err = coll.Doc("profile").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// ListDevices retrieves every device for the user.
func (f *FirestoreProvider) ListDevices(ctx context.Context, userID string) ([]types.DeviceState, error) {
	coll, err := f.userCollection(userID, collDevices)
	if err != nil {
		return nil, err
	}
	iter := coll.Documents(ctx)
	defer iter.Stop()

	var devices []types.DeviceState
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating devices: %w", err)
		}
		d, err := decodeRow[types.DeviceState](ctx, doc)
		if err != nil {
			// Skip malformed documents
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// UpsertDevice adds or updates a device document keyed by its ID.
func (f *FirestoreProvider) UpsertDevice(ctx context.Context, userID string, device types.DeviceState) error {
	if device.ID == "" {
		return fmt.Errorf("device missing id")
	}
	jsonBytes, err := json.Marshal(device)
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}
	coll, err := f.userCollection(userID, collDevices)
	if err != nil {
		return err
	}
	_, err = coll.Doc(device.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", device.ID, err)
	}
	return nil
}

// InsertEnergySample appends one raw telemetry row.
func (f *FirestoreProvider) InsertEnergySample(ctx context.Context, userID string, sample types.EnergySample) error {
	coll, err := f.userCollection(userID, collEnergySamples)
	if err != nil {
		return err
	}
	return insertTimestamped(ctx, coll, sample.Timestamp, sample)
}

// InsertWeatherSample appends one raw weather row.
func (f *FirestoreProvider) InsertWeatherSample(ctx context.Context, userID string, sample types.WeatherSample) error {
	coll, err := f.userCollection(userID, collWeatherSamples)
	if err != nil {
		return err
	}
	return insertTimestamped(ctx, coll, sample.Timestamp, sample)
}

// InsertPriceSample appends one raw price row.
func (f *FirestoreProvider) InsertPriceSample(ctx context.Context, userID string, sample types.PriceSample) error {
	coll, err := f.userCollection(userID, collPriceSamples)
	if err != nil {
		return err
	}
	return insertTimestamped(ctx, coll, sample.Timestamp, sample)
}

// GetEnergySamples retrieves raw telemetry rows within [start, end).
func (f *FirestoreProvider) GetEnergySamples(ctx context.Context, userID string, start, end time.Time) ([]types.EnergySample, error) {
	coll, err := f.userCollection(userID, collEnergySamples)
	if err != nil {
		return nil, err
	}
	return queryRange[types.EnergySample](ctx, coll, start, end)
}

// GetLatestWeatherSample retrieves the most recent weather row.
func (f *FirestoreProvider) GetLatestWeatherSample(ctx context.Context, userID string) (types.WeatherSample, error) {
	coll, err := f.userCollection(userID, collWeatherSamples)
	if err != nil {
		return types.WeatherSample{}, err
	}
	return latestRow[types.WeatherSample](ctx, coll)
}

// GetLatestPriceSample retrieves the most recent price row.
func (f *FirestoreProvider) GetLatestPriceSample(ctx context.Context, userID string) (types.PriceSample, error) {
	coll, err := f.userCollection(userID, collPriceSamples)
	if err != nil {
		return types.PriceSample{}, err
	}
	return latestRow[types.PriceSample](ctx, coll)
}

// DeleteSamplesBefore removes raw sample rows older than cutoff from all
// three raw collections. The first failure aborts; the retention pass is
// re-run every tick anyway.
func (f *FirestoreProvider) DeleteSamplesBefore(ctx context.Context, userID string, cutoff time.Time) error {
	for _, name := range []string{collEnergySamples, collWeatherSamples, collPriceSamples} {
		coll, err := f.userCollection(userID, name)
		if err != nil {
			return err
		}
		if err := f.deleteBefore(ctx, coll, cutoff); err != nil {
			return err
		}
	}
	return nil
}

// InsertEnergyLog appends one aggregated consumption row.
func (f *FirestoreProvider) InsertEnergyLog(ctx context.Context, userID string, entry types.EnergyLogEntry) error {
	coll, err := f.userCollection(userID, collEnergyLog)
	if err != nil {
		return err
	}
	return insertTimestamped(ctx, coll, entry.LoggedAt, entry)
}

// InsertSolarLog appends one aggregated generation row.
func (f *FirestoreProvider) InsertSolarLog(ctx context.Context, userID string, entry types.SolarLogEntry) error {
	coll, err := f.userCollection(userID, collSolarLog)
	if err != nil {
		return err
	}
	return insertTimestamped(ctx, coll, entry.LoggedAt, entry)
}

// GetEnergyLog retrieves aggregated consumption rows within [start, end).
func (f *FirestoreProvider) GetEnergyLog(ctx context.Context, userID string, start, end time.Time) ([]types.EnergyLogEntry, error) {
	coll, err := f.userCollection(userID, collEnergyLog)
	if err != nil {
		return nil, err
	}
	return queryRange[types.EnergyLogEntry](ctx, coll, start, end)
}

// GetSolarLog retrieves aggregated generation rows within [start, end).
func (f *FirestoreProvider) GetSolarLog(ctx context.Context, userID string, start, end time.Time) ([]types.SolarLogEntry, error) {
	coll, err := f.userCollection(userID, collSolarLog)
	if err != nil {
		return nil, err
	}
	return queryRange[types.SolarLogEntry](ctx, coll, start, end)
}

// ReplaceRecommendations deletes every stored recommendation for the user
// and inserts the new set. This is a full replace, not a merge.
func (f *FirestoreProvider) ReplaceRecommendations(ctx context.Context, userID string, recs []types.Recommendation) error {
	coll, err := f.userCollection(userID, collRecommendations)
	if err != nil {
		return err
	}
	if err := f.deleteAll(ctx, coll); err != nil {
		return err
	}
	now := time.Now()
	for i, rec := range recs {
		// zero-padded rank keeps display order stable
		docID := fmt.Sprintf("rec-%02d", i)
		rec.ID = docID
		jsonBytes, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendation: %w", err)
		}
		if _, err := coll.Doc(docID).Set(ctx, map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": now,
		}); err != nil {
			return fmt.Errorf("failed to insert recommendation %s: %w", docID, err)
		}
	}
	return nil
}

// GetRecommendations retrieves the stored recommendation set in rank order.
func (f *FirestoreProvider) GetRecommendations(ctx context.Context, userID string) ([]types.Recommendation, error) {
	coll, err := f.userCollection(userID, collRecommendations)
	if err != nil {
		return nil, err
	}
	iter := coll.OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var recs []types.Recommendation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating recommendations: %w", err)
		}
		rec, err := decodeRow[types.Recommendation](ctx, doc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ReplaceForecasts deletes every stored forecast for the user and inserts
// the new set, one document per target.
func (f *FirestoreProvider) ReplaceForecasts(ctx context.Context, userID string, forecasts []types.Forecast) error {
	coll, err := f.userCollection(userID, collForecasts)
	if err != nil {
		return err
	}
	if err := f.deleteAll(ctx, coll); err != nil {
		return err
	}
	now := time.Now()
	for _, fc := range forecasts {
		jsonBytes, err := json.Marshal(fc)
		if err != nil {
			return fmt.Errorf("failed to marshal forecast: %w", err)
		}
		if _, err := coll.Doc(string(fc.Target)).Set(ctx, map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": now,
			"version":   types.CurrentForecastVersion,
		}); err != nil {
			return fmt.Errorf("failed to insert forecast %s: %w", fc.Target, err)
		}
	}
	return nil
}

// GetForecasts retrieves the stored forecast set.
func (f *FirestoreProvider) GetForecasts(ctx context.Context, userID string) ([]types.Forecast, error) {
	coll, err := f.userCollection(userID, collForecasts)
	if err != nil {
		return nil, err
	}
	iter := coll.Documents(ctx)
	defer iter.Stop()

	var forecasts []types.Forecast
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating forecasts: %w", err)
		}
		fc, err := decodeRow[types.Forecast](ctx, doc)
		if err != nil {
			return nil, err
		}
		forecasts = append(forecasts, fc)
	}
	return forecasts, nil
}

// GetLatestForecastTime retrieves when the stored forecasts were written.
func (f *FirestoreProvider) GetLatestForecastTime(ctx context.Context, userID string) (time.Time, error) {
	coll, err := f.userCollection(userID, collForecasts)
	if err != nil {
		return time.Time{}, err
	}
	iter := coll.
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest forecast doc: %w", err)
	}

	val, err := doc.DataAt("timestamp")
	if err != nil {
		return time.Time{}, fmt.Errorf("forecast doc %s missing timestamp: %w", doc.Ref.ID, err)
	}
	ts, ok := val.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("forecast doc %s timestamp is not a time", doc.Ref.ID)
	}
	return ts, nil
}
