// Package orchestrator drives the pass loop: enumerate or reload, schedule,
// aggregate, checkpoint, notify, sleep, repeat.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicledger/actas-harvester/internal/api"
	"github.com/civicledger/actas-harvester/internal/harvest"
	"github.com/civicledger/actas-harvester/internal/progress"
)

// Runner executes one pass over a set. The scheduler satisfies this.
type Runner interface {
	Run(ctx context.Context, set harvest.ActaSet) harvest.ActaSet
}

// RunnerFactory builds a Runner bound to a pass ID so progress events from the
// pipeline carry the right pass identity.
type RunnerFactory func(passID uuid.UUID) Runner

// Config controls the pass loop.
type Config struct {
	// CheckpointPath is the canonical resume file. Empty disables resumption.
	CheckpointPath string
	// DataDir receives a timestamped checkpoint copy per pass for audits.
	// Empty disables copies.
	DataDir string
	// Variants are the document-type families to enumerate.
	Variants []harvest.Variant
	// Start and Total bound the numeric precinct ID range (inclusive).
	Start int
	Total int
	// Interval is the sleep between passes.
	Interval time.Duration
	// RunOnce stops after a single pass.
	RunOnce bool
	// Topic receives the run-summary notification.
	Topic string
}

// Orchestrator owns the long-running harvest loop.
type Orchestrator struct {
	cfg         Config
	runners     RunnerFactory
	checkpoints harvest.CheckpointStore
	publisher   harvest.Publisher
	history     harvest.PassHistory
	status      *api.StatusStore
	emitter     progress.Emitter
	clock       harvest.Clock
	logger      *zap.Logger

	// attempts tracks per-URL unfinished passes across the process lifetime.
	// It is intentionally not persisted; a restart grants a fresh budget.
	attempts map[string]int
}

// New constructs an Orchestrator. history, status, and emitter may be nil.
func New(
	cfg Config,
	runners RunnerFactory,
	checkpoints harvest.CheckpointStore,
	publisher harvest.Publisher,
	history harvest.PassHistory,
	status *api.StatusStore,
	emitter progress.Emitter,
	clock harvest.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if len(cfg.Variants) == 0 {
		cfg.Variants = harvest.DefaultVariants()
	}
	if cfg.Start < 1 {
		cfg.Start = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:         cfg,
		runners:     runners,
		checkpoints: checkpoints,
		publisher:   publisher,
		history:     history,
		status:      status,
		emitter:     emitter,
		clock:       clock,
		logger:      logger,
		attempts:    make(map[string]int),
	}
}

// Run executes passes until the context is canceled (or after one pass when
// RunOnce is set).
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("orchestrator stopped: %w", err)
		}
		o.runPass(ctx)
		if o.cfg.RunOnce {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("orchestrator stopped: %w", ctx.Err())
		case <-time.After(o.cfg.Interval):
		}
	}
}

func (o *Orchestrator) runPass(ctx context.Context) {
	passID := uuid.New()
	started := o.clock.Now()

	set := o.loadSet()
	for i := range set {
		set[i].Attempts = o.attempts[set[i].URL]
	}

	o.logger.Info("pass started",
		zap.String("pass_id", passID.String()),
		zap.Int("actas", len(set)),
	)
	if o.status != nil {
		o.status.PassStarted(passID.String(), started)
	}
	o.emit(progress.Event{PassID: progress.UUIDToBytes(passID), TS: started, Stage: progress.StagePassStart})

	results := o.runners(passID).Run(ctx, set)
	o.recordAttempts(results)

	finished := o.clock.Now()
	counters := results.Tally()

	o.saveCheckpoints(results, finished)
	if o.status != nil {
		o.status.PassFinished(finished, counters)
	}
	o.emit(progress.Event{
		PassID: progress.UUIDToBytes(passID),
		TS:     finished,
		Stage:  progress.StagePassDone,
		Dur:    finished.Sub(started),
	})
	o.notify(ctx, passID, started, finished, counters)
	o.recordHistory(ctx, passID, started, finished, counters)

	o.logger.Info("pass finished",
		zap.String("pass_id", passID.String()),
		zap.Duration("dur", finished.Sub(started)),
		zap.Int("total", counters.Total),
		zap.Int("downloaded", counters.Downloaded),
		zap.Int("uploaded", counters.Uploaded),
		zap.Int("not_found", counters.NotFound),
		zap.Int("forbidden", counters.Forbidden),
		zap.Int("errors", counters.Errors),
		zap.Int("duplicate_urls", counters.DuplicateURLs),
		zap.Int("files_downloaded", counters.FilesDownloaded),
		zap.Int("files_uploaded", counters.FilesUploaded),
	)
}

// loadSet prefers the checkpoint written by the previous pass and falls back
// to a fresh enumeration.
func (o *Orchestrator) loadSet() harvest.ActaSet {
	if o.cfg.CheckpointPath != "" {
		if _, err := os.Stat(o.cfg.CheckpointPath); err == nil {
			set, err := o.checkpoints.Load(o.cfg.CheckpointPath)
			if err == nil {
				return set
			}
			o.logger.Error("checkpoint load failed, enumerating fresh",
				zap.String("path", o.cfg.CheckpointPath),
				zap.Error(err),
			)
		}
	}
	return harvest.Enumerate(o.cfg.Variants, o.cfg.Start, o.cfg.Total)
}

// recordAttempts bumps the attempt count for unfinished actas and clears
// finished ones. Items the policy gave up on keep their count so they stay
// skipped.
func (o *Orchestrator) recordAttempts(results harvest.ActaSet) {
	for _, a := range results {
		if a.Done() {
			delete(o.attempts, a.URL)
			continue
		}
		o.attempts[a.URL]++
	}
}

func (o *Orchestrator) saveCheckpoints(results harvest.ActaSet, finished time.Time) {
	if o.cfg.CheckpointPath != "" {
		if err := o.checkpoints.Save(o.cfg.CheckpointPath, results); err != nil {
			o.logger.Error("checkpoint save failed",
				zap.String("path", o.cfg.CheckpointPath),
				zap.Error(err),
			)
		}
	}
	if o.cfg.DataDir != "" {
		name := fmt.Sprintf("checkpoint_%s.csv", finished.UTC().Format("20060102T150405"))
		path := filepath.Join(o.cfg.DataDir, name)
		if err := o.checkpoints.Save(path, results); err != nil {
			o.logger.Warn("timestamped checkpoint save failed",
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
}

// notify publishes the run summary. Failures are logged and never abort the
// loop.
func (o *Orchestrator) notify(ctx context.Context, passID uuid.UUID, started, finished time.Time, counters harvest.Counters) {
	if o.publisher == nil || o.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"pass_id":     passID.String(),
		"started_at":  started.UTC().Format(time.RFC3339),
		"finished_at": finished.UTC().Format(time.RFC3339),
		"counters":    counters,
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.Topic, payload); err != nil {
		o.logger.Error("run summary publish failed", zap.Error(err))
	}
}

func (o *Orchestrator) recordHistory(ctx context.Context, passID uuid.UUID, started, finished time.Time, counters harvest.Counters) {
	if o.history == nil {
		return
	}
	rec := harvest.PassRecord{
		ID:         passID.String(),
		StartedAt:  started,
		FinishedAt: finished,
		Counters:   counters,
	}
	if err := o.history.RecordPass(ctx, rec); err != nil {
		o.logger.Error("pass history record failed", zap.Error(err))
	}
}

func (o *Orchestrator) emit(evt progress.Event) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(evt)
}
