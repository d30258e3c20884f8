// Package harvest defines core types shared across subsystems.
package harvest

import "time"

// ActaStatus represents the per-attempt outcome of processing one acta.
type ActaStatus string

// Acta status values persisted in checkpoints.
const (
	StatusPending    ActaStatus = "pending"
	StatusDownloaded ActaStatus = "downloaded"
	StatusNotFound   ActaStatus = "not_found"
	StatusForbidden  ActaStatus = "forbidden"
	StatusError      ActaStatus = "error"
)

// ParseStatus maps a stored status string onto an ActaStatus. Unrecognized
// values decode to StatusError so a corrupted checkpoint row is re-attempted
// rather than rejected.
func ParseStatus(s string) ActaStatus {
	switch ActaStatus(s) {
	case StatusPending, StatusDownloaded, StatusNotFound, StatusForbidden, StatusError:
		return ActaStatus(s)
	default:
		return StatusError
	}
}

// TimestampLayout renders ISO-8601 with millisecond precision and a numeric
// UTC offset, matching the checkpoint wire format.
const TimestampLayout = "2006-01-02T15:04:05.000-07:00"

// FormatTimestamp renders t in the checkpoint timestamp form (always UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Acta is one expected tally-sheet document set, identified by its source
// dashboard URL. Actas are treated as immutable values: pipeline stages return
// a new Acta instead of mutating fields in place.
type Acta struct {
	URL       string
	Status    ActaStatus
	Uploaded  bool
	Timestamp string
	FileNames []string
	Hashes    []string

	// Attempts counts processing passes that left this acta unfinished. It is
	// maintained by the orchestrator and never persisted.
	Attempts int
}

// NewActa returns a fresh pending acta for the given dashboard URL.
func NewActa(url string) Acta {
	return Acta{URL: url, Status: StatusPending}
}

// WithStatus returns a copy with the given status.
func (a Acta) WithStatus(status ActaStatus) Acta {
	a.Status = status
	return a
}

// Done reports whether no further work is needed for this acta.
func (a Acta) Done() bool {
	return a.Status == StatusDownloaded && a.Uploaded
}

// ActaSet is an ordered collection of actas. The dashboard URL is the natural
// identity but uniqueness is not enforced; duplicate URLs introduced by a
// fresh enumeration on top of a reloaded checkpoint are an accepted artifact
// of catch-up runs.
type ActaSet []Acta

// Counters aggregates the outcome of one processing pass.
type Counters struct {
	Total           int `json:"total"`
	Downloaded      int `json:"downloaded"`
	Uploaded        int `json:"uploaded"`
	NotFound        int `json:"not_found"`
	Forbidden       int `json:"forbidden"`
	Errors          int `json:"errors"`
	DuplicateURLs   int `json:"duplicate_urls"`
	FilesDownloaded int `json:"files_downloaded"`
	FilesUploaded   int `json:"files_uploaded"`
}

// Tally computes pass counters over the set. DuplicateURLs counts downloaded
// actas whose URL already appeared earlier in the set with downloaded status.
func (s ActaSet) Tally() Counters {
	c := Counters{Total: len(s)}
	seen := make(map[string]bool, len(s))
	for _, a := range s {
		switch a.Status {
		case StatusDownloaded:
			c.Downloaded++
			c.FilesDownloaded += len(a.FileNames)
			if seen[a.URL] {
				c.DuplicateURLs++
			}
			seen[a.URL] = true
			if a.Uploaded {
				c.FilesUploaded += len(a.FileNames)
			}
		case StatusNotFound:
			c.NotFound++
		case StatusForbidden:
			c.Forbidden++
		case StatusError:
			c.Errors++
		case StatusPending:
		}
		if a.Uploaded {
			c.Uploaded++
		}
	}
	return c
}

// Chunk is a contiguous sub-sequence of an ActaSet dispatched as one unit of
// work. Index is used to reassemble results in the original order.
type Chunk struct {
	Index int
	Actas []Acta
}

// Split partitions the set into chunks of at most size actas, preserving
// order. The last chunk may be shorter.
func (s ActaSet) Split(size int) []Chunk {
	if size <= 0 || len(s) == 0 {
		return nil
	}
	chunks := make([]Chunk, 0, (len(s)+size-1)/size)
	for i := 0; i < len(s); i += size {
		end := i + size
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Actas: s[i:end]})
	}
	return chunks
}
