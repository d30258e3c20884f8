package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

func TestRecordPassInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPassStoreWithPool(mock, "harvest_passes")
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	rec := harvest.PassRecord{
		ID:         "pass-uuid",
		StartedAt:  started,
		FinishedAt: started.Add(10 * time.Minute),
		Counters: harvest.Counters{
			Total:           8562,
			Downloaded:      8000,
			Uploaded:        7990,
			NotFound:        500,
			Forbidden:       12,
			Errors:          50,
			FilesDownloaded: 16000,
			FilesUploaded:   15980,
		},
	}

	mock.ExpectExec("INSERT INTO harvest_passes").
		WithArgs(
			rec.ID,
			rec.StartedAt,
			rec.FinishedAt,
			rec.Counters.Total,
			rec.Counters.Downloaded,
			rec.Counters.Uploaded,
			rec.Counters.NotFound,
			rec.Counters.Forbidden,
			rec.Counters.Errors,
			rec.Counters.DuplicateURLs,
			rec.Counters.FilesDownloaded,
			rec.Counters.FilesUploaded,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordPass(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPassRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPassStoreWithPool(mock, "harvest_passes")
	require.NoError(t, err)

	err = store.RecordPass(context.Background(), harvest.PassRecord{})
	require.Error(t, err)
}

func TestListPasses(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPassStoreWithPool(mock, "harvest_passes")
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{
		"id", "started_at", "finished_at", "total", "downloaded", "uploaded",
		"not_found", "forbidden", "errors", "duplicate_urls",
		"files_downloaded", "files_uploaded",
	}).AddRow("pass-1", started, started.Add(time.Minute), 10, 8, 8, 1, 0, 1, 0, 16, 16)

	mock.ExpectQuery("SELECT id, started_at, finished_at").
		WithArgs(20, 0).
		WillReturnRows(rows)

	recs, err := store.ListPasses(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "pass-1", recs[0].ID)
	assert.Equal(t, 8, recs[0].Counters.Downloaded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPassStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPassStoreWithPool(mock, "bad;table")
	require.Error(t, err)
}
