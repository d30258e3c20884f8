package harvest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ActaStatus
	}{
		{"pending", StatusPending},
		{"downloaded", StatusDownloaded},
		{"not_found", StatusNotFound},
		{"forbidden", StatusForbidden},
		{"error", StatusError},
		{"", StatusError},
		{"DOWNLOADED", StatusError},
		{"garbage", StatusError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStatus(tt.in), "input %q", tt.in)
	}
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 6, 16, 59, 15, 865_000_000, time.UTC)
	assert.Equal(t, "2024-03-06T16:59:15.865+00:00", FormatTimestamp(at))

	// Non-UTC inputs are normalized to UTC.
	loc := time.FixedZone("X", -6*3600)
	assert.Equal(t, "2024-03-06T16:59:15.865+00:00", FormatTimestamp(at.In(loc)))
}

func TestSplit(t *testing.T) {
	t.Parallel()

	set := ActaSet{NewActa("a"), NewActa("b"), NewActa("c")}
	chunks := set.Split(2)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, []Acta{NewActa("a"), NewActa("b")}, chunks[0].Actas)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, []Acta{NewActa("c")}, chunks[1].Actas)
}

func TestSplitSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, k       int
		wantChunks int
		wantLast   int
	}{
		{0, 5, 0, 0},
		{1, 5, 1, 1},
		{5, 5, 1, 5},
		{6, 5, 2, 1},
		{10, 3, 4, 1},
		{500, 500, 1, 500},
	}
	for _, tt := range tests {
		set := make(ActaSet, tt.n)
		chunks := set.Split(tt.k)
		require.Len(t, chunks, tt.wantChunks, "n=%d k=%d", tt.n, tt.k)
		if tt.wantChunks > 0 {
			assert.Len(t, chunks[tt.wantChunks-1].Actas, tt.wantLast)
			for i, ch := range chunks[:tt.wantChunks-1] {
				assert.Len(t, ch.Actas, tt.k, "chunk %d", i)
			}
		}
	}
}

func TestSplitInvalidSize(t *testing.T) {
	t.Parallel()
	assert.Nil(t, ActaSet{NewActa("a")}.Split(0))
}

func TestTally(t *testing.T) {
	t.Parallel()

	set := ActaSet{
		{URL: "u1", Status: StatusDownloaded, Uploaded: true, FileNames: []string{"f1", "f2"}},
		{URL: "u1", Status: StatusDownloaded, Uploaded: false, FileNames: []string{"f1"}},
		{URL: "u2", Status: StatusNotFound},
		{URL: "u3", Status: StatusForbidden},
		{URL: "u4", Status: StatusError},
		{URL: "u5", Status: StatusPending},
	}
	c := set.Tally()
	assert.Equal(t, 6, c.Total)
	assert.Equal(t, 2, c.Downloaded)
	assert.Equal(t, 1, c.Uploaded)
	assert.Equal(t, 1, c.NotFound)
	assert.Equal(t, 1, c.Forbidden)
	assert.Equal(t, 1, c.Errors)
	assert.Equal(t, 1, c.DuplicateURLs)
	assert.Equal(t, 3, c.FilesDownloaded)
	assert.Equal(t, 2, c.FilesUploaded)
}

func TestDone(t *testing.T) {
	t.Parallel()

	assert.True(t, Acta{Status: StatusDownloaded, Uploaded: true}.Done())
	assert.False(t, Acta{Status: StatusDownloaded}.Done())
	assert.False(t, Acta{Status: StatusError, Uploaded: true}.Done())
}
