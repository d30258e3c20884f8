// Package scheduler fans chunks of actas out to a fixed worker pool.
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/civicledger/actas-harvester/internal/checkpoint"
	"github.com/civicledger/actas-harvester/internal/harvest"
)

// Config controls chunking and pool size.
type Config struct {
	// ChunkSize is the number of actas dispatched as one unit of work.
	ChunkSize int `mapstructure:"chunk_size"`
	// Concurrency is the number of chunks processed in parallel. Items within
	// a chunk run sequentially.
	Concurrency int `mapstructure:"concurrency"`
	// ArtifactDir receives one chunk_<index>.csv per finished chunk so a crash
	// mid-pass leaves inspectable partial results. Empty disables artifacts.
	ArtifactDir string `mapstructure:"artifact_dir"`
}

// Scheduler splits an ActaSet into chunks and drives them through a worker
// pool, reassembling results in the original order.
type Scheduler struct {
	cfg       Config
	processor harvest.Processor
	artifacts *checkpoint.Store
	logger    *zap.Logger
}

// New constructs a Scheduler.
func New(cfg Config, processor harvest.Processor, logger *zap.Logger) *Scheduler {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 12
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:       cfg,
		processor: processor,
		artifacts: checkpoint.New(logger.Named("artifacts")),
		logger:    logger,
	}
}

// Run processes the whole set and returns the results in input order. A
// canceled context stops dispatching new chunks; chunks already in flight
// finish their current item and return what they have.
func (s *Scheduler) Run(ctx context.Context, set harvest.ActaSet) harvest.ActaSet {
	chunks := set.Split(s.cfg.ChunkSize)
	if len(chunks) == 0 {
		return nil
	}

	tasks := make(chan harvest.Chunk)
	results := make([]harvest.ActaSet, len(chunks))

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range tasks {
				results[chunk.Index] = s.processChunk(ctx, chunk)
			}
		}()
	}

dispatch:
	for _, chunk := range chunks {
		select {
		case tasks <- chunk:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(tasks)
	wg.Wait()

	merged := make(harvest.ActaSet, 0, len(set))
	for i, res := range results {
		if res == nil {
			// Chunk never dispatched; carry its input through unchanged.
			res = chunks[i].Actas
		}
		merged = append(merged, res...)
	}
	return merged
}

// processChunk runs the chunk's actas sequentially and writes the crash
// artifact when configured.
func (s *Scheduler) processChunk(ctx context.Context, chunk harvest.Chunk) harvest.ActaSet {
	out := make(harvest.ActaSet, 0, len(chunk.Actas))
	for _, acta := range chunk.Actas {
		if ctx.Err() != nil {
			// Carry the remaining inputs through so no acta is lost.
			out = append(out, chunk.Actas[len(out):]...)
			break
		}
		out = append(out, s.processor.Process(ctx, acta))
	}

	if err := s.writeArtifact(chunk.Index, out); err != nil {
		s.logger.Warn("chunk artifact write failed",
			zap.Int("chunk", chunk.Index),
			zap.Error(err),
		)
	}
	s.logger.Debug("chunk processed", zap.Int("chunk", chunk.Index), zap.Int("actas", len(out)))
	return out
}

// writeArtifact saves the chunk result through the checkpoint store, so the
// artifact lands with the same temp-then-rename guarantee as checkpoints and a
// crash mid-write never leaves a truncated chunk_<index>.csv.
func (s *Scheduler) writeArtifact(index int, set harvest.ActaSet) error {
	if s.cfg.ArtifactDir == "" {
		return nil
	}
	path := filepath.Join(s.cfg.ArtifactDir, fmt.Sprintf("chunk_%d.csv", index))
	return s.artifacts.Save(path, set)
}
