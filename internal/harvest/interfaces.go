package harvest

import (
	"context"
	"time"
)

// Fetcher issues a single HTTP GET and returns status plus body. Transport
// failures return an error; HTTP error statuses do not.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// FetchResponse is the result of one GET.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Resolver fetches a dashboard page and extracts the referenced image
// filenames in document order. An empty slice means the dashboard lists no
// images; it is not an error.
type Resolver interface {
	FileNames(ctx context.Context, dashboardURL string) ([]string, error)
}

// ContentStore persists fetched bytes content-addressed by digest. Write
// routes colliding digests into a duplicates area rather than overwriting.
type ContentStore interface {
	// Write stores data under the canonical name for digest, or under a
	// duplicate name derived from timestamp when the canonical file already
	// exists. It returns the file name the bytes were stored under.
	Write(digest string, timestamp string, data []byte) (string, error)
	// Open returns the stored bytes for a file name previously returned by
	// Write.
	Open(name string) ([]byte, error)
	// Archive moves an uploaded file into the archived area. Already-archived
	// files are a no-op.
	Archive(name string) error
	// Exists reports whether the canonical file for digest is present.
	Exists(digest string) bool
}

// ProgressFunc receives byte deltas during a streaming transfer. It may be
// invoked from a goroutine other than the caller's.
type ProgressFunc func(bytes int64)

// ObjectStore is the durable object-storage collaborator. Keys are file
// names; delivery is at-least-once and idempotent by content-addressed key.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, progress ProgressFunc) error
	Size(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Uploader publishes an acta's stored files to object storage. It never
// returns an error: any failure leaves Uploaded=false on the returned acta.
type Uploader interface {
	Upload(ctx context.Context, acta Acta) Acta
}

// Publisher pushes run-summary notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// PassRecord summarizes one completed processing pass for durable history.
type PassRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Counters   Counters
}

// PassHistory persists pass summaries. Implementations must tolerate being
// called once per pass for long-running harvests.
type PassHistory interface {
	RecordPass(ctx context.Context, rec PassRecord) error
}

// CheckpointStore serializes an ActaSet to a durable row format and back.
type CheckpointStore interface {
	Save(path string, set ActaSet) error
	Load(path string) (ActaSet, error)
}

// Processor runs the per-acta pipeline and returns the mutated value.
type Processor interface {
	Process(ctx context.Context, acta Acta) Acta
}

// Hasher computes content digests for deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
