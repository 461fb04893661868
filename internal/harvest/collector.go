package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/AUMikkel/survey-scripts/internal/logging"
	"github.com/AUMikkel/survey-scripts/internal/reference"
	"github.com/AUMikkel/survey-scripts/internal/scopus"
	"github.com/AUMikkel/survey-scripts/internal/store"
)

var (
	seedsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citeharvest_seeds_total",
		Help: "Seeds processed by action (fetched, skipped, invalid) and status",
	}, []string{"action", "status"})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "citeharvest_records_total",
		Help: "Records harvested and checkpointed",
	})
)

// ErrCheckpoint wraps store persistence failures, the one error that ends a run.
var ErrCheckpoint = errors.New("checkpoint failed")

// ErrStoreLoad wraps failures to read an existing store before a run starts.
var ErrStoreLoad = errors.New("loading store failed")

// CheckpointFunc persists a complete snapshot of the store.
type CheckpointFunc func(*store.Store) error

// Summary reports what a collector run did.
type Summary struct {
	RunID      string              `json:"run_id"`
	Direction  reference.Direction `json:"direction"`
	StorePath  string              `json:"store_path,omitempty"`
	Seeds      int                 `json:"seeds"`
	Fetched    int                 `json:"fetched"`
	Skipped    int                 `json:"skipped"`
	Invalid    int                 `json:"invalid"`
	Records    int                 `json:"records"`
	Pages      int                 `json:"pages"`
	Degraded   []string            `json:"degraded"`
	Capped     []string            `json:"capped"`
	StoreSeeds int                 `json:"store_seeds"`
	Duration   time.Duration       `json:"duration_ns"`
}

// Collect harvests every seed not yet present in st, in input order, and
// checkpoints st after each one.
//
// Seeds are normalized first; empty IDs are skipped silently and IDs already
// in st are skipped without any request. A seed's result set, empty or
// not, is inserted only once its harvest finished, and checkpoint runs before
// the next seed starts, so an interrupted run loses at most the seed in
// flight. A checkpoint error aborts the run. Cancelling ctx stops before
// the next seed and discards the partial result of the current one.
func Collect(ctx context.Context, h Harvester, st *store.Store, seeds []string, checkpoint CheckpointFunc, logger zerolog.Logger) (Summary, error) {
	return collect(ctx, h, st, seeds, 0, checkpoint, logger)
}

// collect is Collect with seeds[0] logged as seed number offset+1.
func collect(ctx context.Context, h Harvester, st *store.Store, seeds []string, offset int, checkpoint CheckpointFunc, logger zerolog.Logger) (Summary, error) {
	start := time.Now()
	sum := Summary{
		RunID:     uuid.NewString(),
		Direction: h.Direction(),
		Seeds:     len(seeds),
		Degraded:  []string{},
		Capped:    []string{},
	}
	logger = logger.With().Str("run_id", sum.RunID).Str("direction", string(sum.Direction)).Logger()
	logger.Info().Int("seeds", len(seeds)).Int("stored", st.Len()).Msg("loaded seeds")

	finish := func(err error) (Summary, error) {
		sum.StoreSeeds = st.Len()
		sum.Duration = time.Since(start)
		return sum, err
	}

	for i, raw := range seeds {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		seed := scopus.Normalize(raw)
		if seed == "" {
			sum.Invalid++
			seedsTotal.WithLabelValues("invalid", "").Inc()
			continue
		}

		seedLog := logger.With().Int("index", offset+i+1).Str("seed", seed).Logger()
		if st.Has(seed) {
			sum.Skipped++
			seedsTotal.WithLabelValues("skipped", "").Inc()
			seedLog.Info().Msg("skipping, already fetched")
			continue
		}

		seedLog.Info().Msg("fetching")
		out := h.Harvest(ctx, seed)
		if err := ctx.Err(); err != nil {
			seedLog.Warn().Int("records", len(out.Records)).Msg("interrupted, seed not saved")
			return finish(err)
		}

		if err := st.Put(seed, out.Records); err != nil {
			return finish(fmt.Errorf("storing %s: %w", seed, err))
		}
		if err := checkpoint(st); err != nil {
			seedLog.Error().Err(err).Msg("checkpoint failed")
			return finish(fmt.Errorf("%w after %s: %w", ErrCheckpoint, seed, err))
		}

		sum.Fetched++
		sum.Records += len(out.Records)
		sum.Pages += out.Pages
		switch out.Status {
		case StatusDegraded:
			sum.Degraded = append(sum.Degraded, seed)
		case StatusCapped:
			sum.Capped = append(sum.Capped, seed)
		}
		seedsTotal.WithLabelValues("fetched", out.Status.String()).Inc()
		recordsTotal.Add(float64(len(out.Records)))

		var ev *zerolog.Event
		if out.Status == StatusDegraded {
			ev = seedLog.Warn().Err(out.Err)
		} else {
			ev = seedLog.Info()
		}
		ev.Int("records", len(out.Records)).
			Int("pages", out.Pages).
			Str("status", out.Status.String()).
			Msg("saved")
	}

	return finish(nil)
}

// Collector runs Collect against a store file.
type Collector struct {
	harvester Harvester
	storePath string
	offset    int
	logger    zerolog.Logger
}

// NewCollector creates a collector that checkpoints to storePath.
func NewCollector(h Harvester, storePath string) *Collector {
	return &Collector{
		harvester: h,
		storePath: storePath,
		logger:    logging.NewLogger("collector"),
	}
}

// WithLogger replaces the collector's logger.
func (c *Collector) WithLogger(l zerolog.Logger) *Collector {
	c.logger = l
	return c
}

// WithOffset sets the position of the first seed in its seed file, so
// progress logs number seeds as the file does when a window is harvested.
func (c *Collector) WithOffset(n int) *Collector {
	if n < 0 {
		n = 0
	}
	c.offset = n
	return c
}

// Run loads the store (empty if the file does not exist yet), collects the
// seeds and returns the resulting store. Re-running with the same seeds and
// store file performs no requests for seeds that already completed.
func (c *Collector) Run(ctx context.Context, seeds []string) (*store.Store, Summary, error) {
	st, err := store.Load(c.storePath)
	if err != nil {
		return nil, Summary{StorePath: c.storePath}, fmt.Errorf("%w: %w", ErrStoreLoad, err)
	}

	sum, err := collect(ctx, c.harvester, st, seeds, c.offset, func(s *store.Store) error {
		return s.Save(c.storePath)
	}, c.logger)
	sum.StorePath = c.storePath

	if err == nil {
		c.logger.Info().
			Str("run_id", sum.RunID).
			Int("fetched", sum.Fetched).
			Int("skipped", sum.Skipped).
			Int("records", sum.Records).
			Str("store", c.storePath).
			Msg("all results saved")
	}
	return st, sum, err
}
