// ABOUTME: Sync engine reconciling remote provider data into the cache store
// ABOUTME: Runs capabilities on a bounded worker pool with one pass per user and capability at a time
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/harperreed/deskhand/db"
	"github.com/harperreed/deskhand/metrics"
	"github.com/harperreed/deskhand/models"
	"github.com/harperreed/deskhand/provider"
)

const (
	DefaultWorkers    = 3
	DefaultMailWindow = 50
)

// ErrNotSynced is returned for capabilities without a sync strategy.
var ErrNotSynced = errors.New("capability is not synced")

// SyncError is one capability's failed reconciliation.
type SyncError struct {
	Capability models.Capability
	Err        error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s sync failed: %v", e.Capability, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Source returns the authoritative provider to pull a capability from.
type Source interface {
	SourceFor(ctx context.Context, userID uuid.UUID, c models.Capability) (provider.Provider, error)
}

// StaticSource resolves through one registry and capability map. Sync pulls
// from the write provider, since that is the account the cache mirrors.
type StaticSource struct {
	Registry *provider.Registry
	Map      provider.CapabilityMap
}

func (s StaticSource) SourceFor(_ context.Context, _ uuid.UUID, c models.Capability) (provider.Provider, error) {
	return s.Map.ResolveWrite(s.Registry, c)
}

// Config tunes the engine.
type Config struct {
	Workers    int
	MailWindow int
	Logger     zerolog.Logger
}

// Engine owns sync passes for every user of one cache store.
type Engine struct {
	store  *db.Store
	source Source
	config Config
	log    zerolog.Logger
	flight singleflight.Group
	now    func() time.Time
}

// NewEngine creates an engine. Zero config values take defaults.
func NewEngine(store *db.Store, source Source, cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MailWindow <= 0 {
		cfg.MailWindow = DefaultMailWindow
	}
	return &Engine{
		store:  store,
		source: source,
		config: cfg,
		log:    cfg.Logger,
		now:    time.Now,
	}
}

// Result is the outcome of one capability's sync pass.
type Result struct {
	Capability models.Capability `json:"capability"`
	Strategy   string            `json:"strategy"`
	Stats      db.WriteStats     `json:"stats"`
	Duration   time.Duration     `json:"duration"`
	Err        error             `json:"-"`
	Error      string            `json:"error,omitempty"`
	// Shared is set when the pass was joined rather than started.
	Shared bool `json:"shared,omitempty"`
}

// OK reports whether the pass succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Report collects one Result per capability.
type Report struct {
	UserID  uuid.UUID `json:"user_id"`
	Results []Result  `json:"results"`
}

// Failed returns the results that carry an error.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every capability synced.
func (r Report) OK() bool { return len(r.Failed()) == 0 }

// RunSingle syncs one capability. Concurrent calls for the same user and
// capability share a single pass. Failures are recorded in sync status and
// returned in the Result, never as a panic or error.
func (e *Engine) RunSingle(ctx context.Context, userID uuid.UUID, c models.Capability) Result {
	key := userID.String() + ":" + string(c)
	v, _, shared := e.flight.Do(key, func() (any, error) {
		return e.run(ctx, userID, c), nil
	})
	res := v.(Result)
	res.Shared = shared
	return res
}

// RunAll syncs every synced capability on the worker pool. One capability's
// failure does not stop the others.
func (e *Engine) RunAll(ctx context.Context, userID uuid.UUID) Report {
	caps := Synced()
	results := make([]Result, len(caps))

	var g errgroup.Group
	g.SetLimit(e.config.Workers)
	for i, c := range caps {
		g.Go(func() error {
			results[i] = e.RunSingle(ctx, userID, c)
			return nil
		})
	}
	_ = g.Wait()

	return Report{UserID: userID, Results: results}
}

func (e *Engine) run(ctx context.Context, userID uuid.UUID, c models.Capability) Result {
	start := e.now()
	log := e.log.With().Str("user_id", userID.String()).Str("capability", string(c)).Logger()

	s, ok := plans[c]
	if !ok {
		return Result{Capability: c, Err: &SyncError{Capability: c, Err: ErrNotSynced}, Error: ErrNotSynced.Error()}
	}

	res := Result{Capability: c, Strategy: s.strategy.String()}
	stats, cursor, err := e.reconcile(ctx, userID, s)
	res.Duration = e.now().Sub(start)
	res.Stats = stats

	if err != nil {
		res.Err = &SyncError{Capability: c, Err: err}
		res.Error = err.Error()
		log.Error().Err(err).Dur("elapsed", res.Duration).Msg("sync failed")
		if recErr := e.store.RecordSyncFailure(ctx, userID, c, err.Error()); recErr != nil {
			log.Error().Err(recErr).Msg("failed to record sync failure")
		}
		metrics.ObserveSync(string(c), false, 0, 0, 0)
		return res
	}

	if recErr := e.store.RecordSyncSuccess(ctx, userID, c, cursor); recErr != nil {
		res.Err = &SyncError{Capability: c, Err: recErr}
		res.Error = recErr.Error()
		log.Error().Err(recErr).Msg("failed to record sync success")
		return res
	}

	log.Info().
		Str("strategy", res.Strategy).
		Int("written", stats.Written).
		Int("unchanged", stats.Unchanged).
		Int("deleted", stats.Deleted).
		Dur("elapsed", res.Duration).
		Msg("sync complete")
	metrics.ObserveSync(string(c), true, stats.Written, stats.Unchanged, stats.Deleted)
	return res
}

func (e *Engine) reconcile(ctx context.Context, userID uuid.UUID, s plan) (db.WriteStats, string, error) {
	p, err := e.source.SourceFor(ctx, userID, s.capability)
	if err != nil {
		return db.WriteStats{}, "", err
	}

	var cursor string
	if s.strategy == Incremental {
		status, err := e.store.GetSyncStatus(ctx, userID, s.capability)
		if err != nil {
			return db.WriteStats{}, "", fmt.Errorf("failed to load sync cursor: %w", err)
		}
		if status != nil {
			cursor = status.Cursor
		}
	}

	got, err := s.fetch(ctx, p, cursor, e)
	if err != nil {
		return db.WriteStats{}, "", provider.Classify(p.ID(), "sync "+string(s.capability), err)
	}
	if err := validateRows(s.table, got.rows); err != nil {
		return db.WriteStats{}, "", err
	}

	settings, err := e.store.FieldSettings(ctx, userID, s.capability)
	if err != nil {
		return db.WriteStats{}, "", fmt.Errorf("failed to load field settings: %w", err)
	}
	rows := project(got.rows, settings)

	var stats db.WriteStats
	switch s.strategy {
	case Full:
		stats, err = e.store.ReconcileFull(ctx, s.table, userID, rows)
	default:
		stats, err = e.store.UpsertRows(ctx, s.table, userID, rows)
	}
	if err != nil {
		return stats, "", err
	}
	return stats, got.cursor, nil
}
