package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/homewatts/homewatts/pkg/log"
	"github.com/homewatts/homewatts/pkg/storage"
	"github.com/homewatts/homewatts/pkg/types"
)

// Mode selects the simulation cadence and which pricing/solar policies run.
type Mode string

const (
	// ModeBackground ticks every 10s of real time advancing the simulated
	// clock 10 minutes, using the profile-driven solar and pricing models.
	ModeBackground Mode = "background"
	// ModeInteractive ticks every 3s advancing 30 simulated seconds, using
	// the interactive demo's solar curve and flat pricing bands.
	ModeInteractive Mode = "interactive"
)

// Config holds the cadence parameters for one Simulator.
type Config struct {
	Mode         Mode
	TickInterval time.Duration // real time between ticks
	SimDelta     time.Duration // simulated time advanced per tick
	FlushWindow  time.Duration // simulated window before an aggregate flush (background)
	FlushTicks   int           // ticks before an aggregate flush (interactive)
	Retention    time.Duration // simulated age after which raw samples are deleted
}

// BackgroundConfig returns the background telemetry cadence.
func BackgroundConfig() Config {
	return Config{
		Mode:         ModeBackground,
		TickInterval: 10 * time.Second,
		SimDelta:     10 * time.Minute,
		FlushWindow:  10 * time.Minute,
		Retention:    24 * time.Hour,
	}
}

// InteractiveConfig returns the interactive demo cadence.
func InteractiveConfig() Config {
	return Config{
		Mode:         ModeInteractive,
		TickInterval: 3 * time.Second,
		SimDelta:     30 * time.Second,
		FlushTicks:   6,
		Retention:    24 * time.Hour,
	}
}

// Simulator owns one user's tick loop: a single-owner timer started with
// Start and torn down deterministically with Stop. All persistence goes
// through the write queue; a failed write never stalls the next tick.
type Simulator struct {
	userID  string
	db      storage.Database
	cfg     Config
	weather *WeatherModel

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}

	// tick state, touched only by the run goroutine after Start
	profile         types.Profile
	devices         []types.DeviceState
	simTime         time.Time
	windowStart     time.Time
	accConsumption  float64 // kWh accumulated since windowStart
	accSolar        float64 // kWh accumulated since windowStart
	ticksSinceFlush int
	cloud           float64
	batterySOC      float64 // 0-100
	rng             *rand.Rand
}

// New creates a Simulator for one user. It does not start the loop.
func New(userID string, db storage.Database, cfg Config) *Simulator {
	return &Simulator{
		userID:  userID,
		db:      db,
		cfg:     cfg,
		weather: NewWeatherModel(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Running reports whether the tick loop is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Start loads the profile and begins the tick loop. It fails if the loop is
// already running; only one timer may exist per simulator.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return fmt.Errorf("simulation already running for user %s", s.userID)
	}

	if err := s.prepare(ctx); err != nil {
		s.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runCtx = log.WithUser(runCtx, s.userID)
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx)

	log.Ctx(ctx).InfoContext(ctx, "simulation started",
		slog.String("mode", string(s.cfg.Mode)),
		slog.Duration("tickInterval", s.cfg.TickInterval),
	)
	return nil
}

// Stop cancels the tick loop and waits for it to exit. In-flight queued
// writes are abandoned; the next Start begins a fresh window.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopped := s.stopped
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// prepare loads the profile and devices and initializes the tick state.
func (s *Simulator) prepare(ctx context.Context) error {
	profile, version, err := s.db.GetProfile(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	profile, _, err = types.MigrateProfile(profile, version)
	if err != nil {
		return fmt.Errorf("failed to migrate profile: %w", err)
	}
	if profile.DataSource != types.DataSourceSimulation {
		return fmt.Errorf("profile data source is %q, not %q", profile.DataSource, types.DataSourceSimulation)
	}
	s.profile = profile

	devices, err := s.db.ListDevices(ctx, s.userID)
	if err != nil {
		// Missing devices aren't fatal; the load is just zero until the
		// next tick's read succeeds.
		log.Ctx(ctx).WarnContext(ctx, "failed to list devices at start", slog.Any("error", err))
	}
	s.devices = devices

	now := time.Now().Truncate(time.Minute)
	s.simTime = now
	s.windowStart = now
	s.accConsumption = 0
	s.accSolar = 0
	s.ticksSinceFlush = 0
	s.cloud = s.rng.Float64() * 0.5
	s.batterySOC = 50
	return nil
}

// run is the tick loop. It owns all tick state after Start.
func (s *Simulator) run(ctx context.Context) {
	queue := newWriteQueue()
	go queue.run(ctx)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	defer close(s.stopped)
	defer queue.wait()

	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).InfoContext(ctx, "simulation stopped")
			return
		case <-ticker.C:
			// refresh the device list; failures keep the previous list
			devices, err := s.db.ListDevices(ctx, s.userID)
			if err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to list devices", slog.Any("error", err))
			} else {
				s.devices = devices
			}
			res := s.tick(s.devices)
			s.enqueueResult(ctx, queue, res)
		}
	}
}

// tickResult is everything one tick wants persisted.
type tickResult struct {
	energy          types.EnergySample
	weather         types.WeatherSample
	price           types.PriceSample
	energyLog       *types.EnergyLogEntry
	solarLog        *types.SolarLogEntry
	retentionCutoff time.Time
}

// tick advances the simulated clock one delta, evaluates the physical
// models, accumulates flush totals, and decides whether this tick flushes.
// It is pure with respect to storage; persistence happens in enqueueResult.
func (s *Simulator) tick(devices []types.DeviceState) tickResult {
	s.simTime = s.simTime.Add(s.cfg.SimDelta)
	s.ticksSinceFlush++
	simHours := s.cfg.SimDelta.Hours()

	// cloud cover drifts as a bounded random walk
	s.cloud = clampCloud(s.cloud + (s.rng.Float64()-0.5)*0.1)

	weather := s.weather.Sample(s.simTime, s.cloud)
	consumptionKW := ConsumptionKW(devices)

	hour := float64(s.simTime.Hour()) + float64(s.simTime.Minute())/60.0
	var solarKW float64
	var price types.PriceSample
	if s.cfg.Mode == ModeInteractive {
		solarKW = InteractiveSolarKW(hour, s.cloud)
		price = InteractivePrice(s.simTime)
	} else {
		solarKW = SolarPowerKW(weather.Irradiance, s.profile.SolarPanelCapacity)
		price = BackgroundPrice(s.simTime, s.profile.ElectricityRate)
	}

	gridKW := math.Max(0, consumptionKW-solarKW)

	// battery charges on solar surplus and drains on deficit
	if s.profile.BatteryCapacityKWH > 0 {
		deltaKWH := (solarKW - consumptionKW) * simHours
		s.batterySOC += deltaKWH / s.profile.BatteryCapacityKWH * 100
		if s.batterySOC > 100 {
			s.batterySOC = 100
		}
		if s.batterySOC < 0 {
			s.batterySOC = 0
		}
	}

	s.accConsumption += consumptionKW * simHours
	s.accSolar += solarKW * simHours

	res := tickResult{
		energy: types.EnergySample{
			Timestamp:     s.simTime,
			ConsumptionKW: consumptionKW,
			SolarKW:       solarKW,
			GridKW:        gridKW,
			BatteryLevel:  s.batterySOC,
			ActiveDevices: CountActive(devices),
			TotalDevices:  len(devices),
		},
		weather:         weather,
		price:           price,
		retentionCutoff: s.simTime.Add(-s.cfg.Retention),
	}

	if s.shouldFlush() {
		// Zero-value aggregates are skipped, not written.
		if s.accConsumption > 0 {
			res.energyLog = &types.EnergyLogEntry{
				LoggedAt:       s.simTime,
				ConsumptionKWH: s.accConsumption,
			}
		}
		if s.accSolar > 0 {
			res.solarLog = &types.SolarLogEntry{
				LoggedAt:      s.simTime,
				GenerationKWH: s.accSolar,
			}
		}
		// The accumulators reset as soon as the flush is handed off; the
		// window start moves forward regardless of what was written.
		s.accConsumption = 0
		s.accSolar = 0
		s.windowStart = s.simTime
		s.ticksSinceFlush = 0
	}

	return res
}

func (s *Simulator) shouldFlush() bool {
	if s.cfg.Mode == ModeInteractive {
		return s.ticksSinceFlush >= s.cfg.FlushTicks
	}
	return s.simTime.Sub(s.windowStart) >= s.cfg.FlushWindow
}

// enqueueResult hands a tick's writes to the queue worker. Every write is
// best-effort; the tick loop never blocks on storage.
func (s *Simulator) enqueueResult(ctx context.Context, queue *writeQueue, res tickResult) {
	userID := s.userID
	db := s.db

	queue.enqueue(ctx, writeOp{name: "insert energy sample", do: func(ctx context.Context) error {
		return db.InsertEnergySample(ctx, userID, res.energy)
	}})
	queue.enqueue(ctx, writeOp{name: "insert weather sample", do: func(ctx context.Context) error {
		return db.InsertWeatherSample(ctx, userID, res.weather)
	}})
	queue.enqueue(ctx, writeOp{name: "insert price sample", do: func(ctx context.Context) error {
		return db.InsertPriceSample(ctx, userID, res.price)
	}})
	if res.energyLog != nil {
		entry := *res.energyLog
		queue.enqueue(ctx, writeOp{name: "insert energy log", do: func(ctx context.Context) error {
			return db.InsertEnergyLog(ctx, userID, entry)
		}})
	}
	if res.solarLog != nil {
		entry := *res.solarLog
		queue.enqueue(ctx, writeOp{name: "insert solar log", do: func(ctx context.Context) error {
			return db.InsertSolarLog(ctx, userID, entry)
		}})
	}
	queue.enqueue(ctx, writeOp{name: "retention delete", do: func(ctx context.Context) error {
		return db.DeleteSamplesBefore(ctx, userID, res.retentionCutoff)
	}})
}
