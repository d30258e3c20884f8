// Package worker implements the per-acta harvest pipeline.
package worker

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicledger/actas-harvester/internal/harvest"
	"github.com/civicledger/actas-harvester/internal/progress"
)

// Processor runs the download-and-upload pipeline for one acta at a time.
// Failures never surface as errors; they are folded into the returned acta's
// status so every item in a chunk gets processed.
type Processor struct {
	fetcher  harvest.Fetcher
	resolver harvest.Resolver
	content  harvest.ContentStore
	uploader harvest.Uploader
	hasher   harvest.Hasher
	clock    harvest.Clock
	policy   harvest.ReprocessPolicy
	variants []harvest.Variant
	emitter  progress.Emitter
	passID   [16]byte
	logger   *zap.Logger
}

// New constructs a Processor.
func New(
	fetcher harvest.Fetcher,
	resolver harvest.Resolver,
	content harvest.ContentStore,
	uploader harvest.Uploader,
	hasher harvest.Hasher,
	clock harvest.Clock,
	policy harvest.ReprocessPolicy,
	variants []harvest.Variant,
	emitter progress.Emitter,
	passID uuid.UUID,
	logger *zap.Logger,
) *Processor {
	if len(variants) == 0 {
		variants = harvest.DefaultVariants()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		fetcher:  fetcher,
		resolver: resolver,
		content:  content,
		uploader: uploader,
		hasher:   hasher,
		clock:    clock,
		policy:   policy,
		variants: variants,
		emitter:  emitter,
		passID:   progress.UUIDToBytes(passID),
		logger:   logger,
	}
}

// Process applies the per-pass action to one acta and returns the new value.
func (p *Processor) Process(ctx context.Context, acta harvest.Acta) harvest.Acta {
	switch p.policy.Decide(acta) {
	case harvest.ActionSkip:
		if p.policy.GaveUp(acta) {
			p.logger.Warn("giving up on acta",
				zap.String("url", acta.URL),
				zap.String("status", string(acta.Status)),
				zap.Int("attempts", acta.Attempts),
			)
		}
		return acta
	case harvest.ActionPublish:
		return p.uploader.Upload(ctx, acta)
	default:
		acta = p.download(ctx, acta)
		if acta.Status == harvest.StatusDownloaded {
			acta = p.uploader.Upload(ctx, acta)
		}
		return acta
	}
}

// download fetches the dashboard, then every file it lists, storing each body
// content-addressed. A failed file writes its classification into the acta's
// status; the files already stored stay recorded either way.
func (p *Processor) download(ctx context.Context, acta harvest.Acta) harvest.Acta {
	variant, err := harvest.DetectVariant(acta.URL, p.variants)
	if err != nil {
		p.logger.Error("unroutable dashboard url", zap.String("url", acta.URL), zap.Error(err))
		return p.finish(acta.WithStatus(harvest.StatusError), "")
	}

	// A full reprocess rebuilds the file lists from scratch.
	acta.FileNames = nil
	acta.Hashes = nil

	names, err := p.resolver.FileNames(ctx, acta.URL)
	if err != nil {
		// Any dashboard resolution failure, HTTP or transport, marks the acta
		// errored so the next pass retries it in full. Only an empty image
		// list means the acta does not exist.
		p.logger.Warn("dashboard resolve failed", zap.String("url", acta.URL), zap.Error(err))
		return p.finish(acta.WithStatus(harvest.StatusError), variant.Name)
	}
	if len(names) == 0 {
		return p.finish(acta.WithStatus(harvest.StatusNotFound), variant.Name)
	}

	status := harvest.StatusDownloaded
	for _, name := range names {
		fileStatus, stored, digest := p.fetchFile(ctx, variant, name)
		if stored != "" {
			acta.FileNames = append(acta.FileNames, stored)
			acta.Hashes = append(acta.Hashes, digest)
		}
		if fileStatus != harvest.StatusDownloaded {
			status = fileStatus
		}
	}
	return p.finish(acta.WithStatus(status), variant.Name)
}

// fetchFile downloads one tally-sheet file and stores its bytes. It returns
// the per-file classification plus the stored name and digest on success.
func (p *Processor) fetchFile(ctx context.Context, variant harvest.Variant, name string) (harvest.ActaStatus, string, string) {
	url := variant.FileURL(name)
	resp, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		p.logger.Warn("file fetch failed", zap.String("url", url), zap.Error(err))
		return harvest.StatusError, "", ""
	}

	switch {
	case resp.StatusCode == 200 && len(resp.Body) > 0:
	case resp.StatusCode == 200 || resp.StatusCode == 404:
		return harvest.StatusNotFound, "", ""
	case resp.StatusCode == 403:
		return harvest.StatusForbidden, "", ""
	default:
		p.logger.Warn("file fetch returned unexpected status",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
		)
		return harvest.StatusError, "", ""
	}

	digest, err := p.hasher.Hash(resp.Body)
	if err != nil {
		p.logger.Error("hash file body", zap.String("url", url), zap.Error(err))
		return harvest.StatusError, "", ""
	}
	timestamp := harvest.FormatTimestamp(p.clock.Now())
	stored, err := p.content.Write(digest, timestamp, resp.Body)
	if err != nil {
		p.logger.Error("store file body", zap.String("url", url), zap.Error(err))
		return harvest.StatusError, "", ""
	}

	p.emit(progress.Event{
		Stage:   progress.StageFileFetch,
		Variant: variant.Name,
		URL:     url,
		Bytes:   int64(len(resp.Body)),
		Dur:     resp.Duration,
	})
	return harvest.StatusDownloaded, stored, digest
}

// finish stamps the acta and emits its outcome.
func (p *Processor) finish(acta harvest.Acta, variantName string) harvest.Acta {
	acta.Timestamp = harvest.FormatTimestamp(p.clock.Now())
	p.emit(progress.Event{
		Stage:   progress.StageActaDone,
		Variant: variantName,
		URL:     acta.URL,
		Status:  string(acta.Status),
	})
	return acta
}

func (p *Processor) emit(evt progress.Event) {
	if p.emitter == nil {
		return
	}
	evt.PassID = p.passID
	evt.TS = p.clock.Now()
	p.emitter.Emit(evt)
}

var _ harvest.Processor = (*Processor)(nil)
