package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicledger/actas-harvester/internal/harvest"
	"github.com/civicledger/actas-harvester/internal/progress"
)

// Uploader pushes an acta's stored files to object storage. Upload failures
// of any kind leave Uploaded=false so the next pass retries the publish step;
// they never abort a chunk.
type Uploader struct {
	content harvest.ContentStore
	objects harvest.ObjectStore
	clock   harvest.Clock
	emitter progress.Emitter
	passID  [16]byte
	logger  *zap.Logger
}

// NewUploader constructs an Uploader.
func NewUploader(
	content harvest.ContentStore,
	objects harvest.ObjectStore,
	clock harvest.Clock,
	emitter progress.Emitter,
	passID uuid.UUID,
	logger *zap.Logger,
) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		content: content,
		objects: objects,
		clock:   clock,
		emitter: emitter,
		passID:  progress.UUIDToBytes(passID),
		logger:  logger,
	}
}

// Upload transfers every stored file of the acta. Uploaded flips to true only
// when all files land; a nil ObjectStore leaves the flag untouched so runs
// without storage configured keep retrying once one is wired.
func (u *Uploader) Upload(ctx context.Context, acta harvest.Acta) harvest.Acta {
	if u.objects == nil {
		return acta
	}
	for _, name := range acta.FileNames {
		if err := u.uploadOne(ctx, name); err != nil {
			u.logger.Warn("upload failed",
				zap.String("url", acta.URL),
				zap.String("file", name),
				zap.Error(err),
			)
			acta.Uploaded = false
			return acta
		}
		// The object landed; failing to move the local copy aside is
		// bookkeeping, not an upload failure.
		if err := u.content.Archive(name); err != nil {
			u.logger.Warn("archive after upload failed",
				zap.String("file", name),
				zap.Error(err),
			)
		}
	}
	acta.Uploaded = true
	u.emit(progress.Event{Stage: progress.StageUploadDone, URL: acta.URL})
	return acta
}

func (u *Uploader) uploadOne(ctx context.Context, name string) error {
	data, err := u.content.Open(name)
	if err != nil {
		return err
	}

	meter := newUploadMeter(int64(len(data)))
	report := func(n int64) {
		sent, pct := meter.add(n)
		u.emit(progress.Event{Stage: progress.StageUploadByte, URL: name, Bytes: n})
		u.logger.Debug("upload progress",
			zap.String("file", name),
			zap.Int64("sent", sent),
			zap.Int64("total", meter.total),
			zap.Float64("percent", pct),
		)
	}
	if err := u.objects.Put(ctx, name, data, report); err != nil {
		return err
	}
	u.logger.Debug("file uploaded", zap.String("file", name), zap.Int64("bytes", meter.total))
	return nil
}

// uploadMeter tracks bytes sent against the file's total size. Progress
// callbacks can fire from transport goroutines, so accumulation is locked.
type uploadMeter struct {
	mu    sync.Mutex
	total int64
	sent  int64
}

func newUploadMeter(total int64) *uploadMeter {
	return &uploadMeter{total: total}
}

// add records a transferred delta and returns the running total and the
// percentage of the file sent so far.
func (m *uploadMeter) add(n int64) (sent int64, pct float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent += n
	if m.total > 0 {
		pct = float64(m.sent) * 100 / float64(m.total)
	}
	return m.sent, pct
}

func (u *Uploader) emit(evt progress.Event) {
	if u.emitter == nil {
		return
	}
	evt.PassID = u.passID
	evt.TS = u.clock.Now()
	u.emitter.Emit(evt)
}

var _ harvest.Uploader = (*Uploader)(nil)
