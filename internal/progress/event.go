// Package progress defines the event stream emitted while harvesting.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StagePassStart  Stage = "PASS_START"
	StagePassDone   Stage = "PASS_DONE"
	StageActaDone   Stage = "ACTA_DONE"
	StageFileFetch  Stage = "FILE_FETCH"
	StageUploadByte Stage = "UPLOAD_BYTES"
	StageUploadDone Stage = "UPLOAD_DONE"
)

// Event captures one harvest milestone. Events are cheap values; emitters
// fill only the fields their stage requires.
type Event struct {
	// PassID identifies the processing pass, in 16-byte UUID form.
	PassID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Variant labels the election race, e.g. "ALCALDE".
	Variant string
	// URL is the dashboard or file URL involved, when applicable.
	URL string
	// Status carries the acta outcome for ACTA_DONE events.
	Status string
	// Bytes carries the size delta for file fetches and upload progress.
	Bytes int64
	// Dur captures latency for fetches and pass completions.
	Dur time.Duration
	// Note attaches low-volume context such as error text.
	Note string
}

// Validate performs coarse validation so malformed events are dropped at the
// hub boundary instead of corrupting sink state.
func (e Event) Validate() error {
	if e.PassID == [16]byte{} {
		return errors.New("pass id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StagePassStart, StagePassDone, StageUploadByte, StageUploadDone:
	case StageActaDone:
		if e.Status == "" {
			return errors.New("acta done requires status")
		}
	case StageFileFetch:
		if e.URL == "" {
			return errors.New("file fetch requires url")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// PassUUID converts the binary pass ID to uuid.UUID.
func (e Event) PassUUID() uuid.UUID {
	return uuid.UUID(e.PassID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
