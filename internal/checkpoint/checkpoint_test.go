package checkpoint

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

func sampleSet() harvest.ActaSet {
	return harvest.ActaSet{
		{
			URL:       "https://divulgacion.tse.gob.sv/dashboard-jrv-1-4.html",
			Status:    harvest.StatusDownloaded,
			Uploaded:  true,
			Timestamp: "2024-03-06T16:59:15.865+00:00",
			FileNames: []string{"aaa.jpeg", "bbb.jpeg"},
			Hashes:    []string{"aaa", "bbb"},
		},
		{
			URL:    "https://divulgacion.tse.gob.sv/dashboard-jrv-2-4.html",
			Status: harvest.StatusNotFound,
		},
		{
			URL:    "https://divulgacion.tse.gob.sv/dashboard-jrv-3-4.html",
			Status: harvest.StatusPending,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := New(nil)
	path := filepath.Join(t.TempDir(), "harvest", "checkpoint.csv")

	require.NoError(t, s.Save(path, sampleSet()))

	got, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleSet(), got)
}

func TestSaveReplacesExisting(t *testing.T) {
	t.Parallel()

	s := New(nil)
	path := filepath.Join(t.TempDir(), "checkpoint.csv")

	require.NoError(t, s.Save(path, sampleSet()))
	require.NoError(t, s.Save(path, sampleSet()[:1]))

	got, err := s.Load(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	s := New(nil)
	_, err := s.Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeUnknownStatusBecomesError(t *testing.T) {
	t.Parallel()

	csvData := strings.Join([]string{
		"URL,STATUS,UPLOADED,DATETIME,FILE_NAMES,HASHES",
		"https://example.test/dashboard-jrv-1-4.html,bogus,false,,,",
	}, "\n")

	set, err := Decode(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, harvest.StatusError, set[0].Status)
}

func TestDecodeEmptySequenceColumns(t *testing.T) {
	t.Parallel()

	csvData := strings.Join([]string{
		"URL,STATUS,UPLOADED,DATETIME,FILE_NAMES,HASHES",
		"https://example.test/dashboard-jrv-1-4.html,not_found,false,,,",
	}, "\n")

	set, err := Decode(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Nil(t, set[0].FileNames)
	assert.Nil(t, set[0].Hashes)
}

func TestDecodeRejectsBadHeader(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader("A,B,C,D,E,F\n"))
	require.Error(t, err)
}

func TestDecodeRejectsBadUploaded(t *testing.T) {
	t.Parallel()

	csvData := strings.Join([]string{
		"URL,STATUS,UPLOADED,DATETIME,FILE_NAMES,HASHES",
		"https://example.test/dashboard-jrv-1-4.html,downloaded,maybe,,,",
	}, "\n")

	_, err := Decode(strings.NewReader(csvData))
	require.Error(t, err)
}

func TestEncodeSpaceJoinsSequences(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleSet()[:1]))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "URL,STATUS,UPLOADED,DATETIME,FILE_NAMES,HASHES", lines[0])
	assert.Contains(t, lines[1], "aaa.jpeg bbb.jpeg")
	assert.Contains(t, lines[1], ",true,")
}
