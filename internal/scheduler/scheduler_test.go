package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/actas-harvester/internal/checkpoint"
	"github.com/civicledger/actas-harvester/internal/harvest"
)

// markProcessor stamps each acta downloaded and records processing order.
type markProcessor struct {
	mu    sync.Mutex
	seen  []string
	inUse atomic.Int32
	peak  atomic.Int32
}

func (p *markProcessor) Process(_ context.Context, acta harvest.Acta) harvest.Acta {
	cur := p.inUse.Add(1)
	for {
		peak := p.peak.Load()
		if cur <= peak || p.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	defer p.inUse.Add(-1)

	p.mu.Lock()
	p.seen = append(p.seen, acta.URL)
	p.mu.Unlock()
	return acta.WithStatus(harvest.StatusDownloaded)
}

func makeSet(n int) harvest.ActaSet {
	set := make(harvest.ActaSet, 0, n)
	for i := 1; i <= n; i++ {
		set = append(set, harvest.NewActa(fmt.Sprintf("https://example.test/dashboard-jrv-%d-4.html", i)))
	}
	return set
}

func TestRunPreservesOrder(t *testing.T) {
	t.Parallel()

	proc := &markProcessor{}
	s := New(Config{ChunkSize: 3, Concurrency: 4}, proc, nil)

	set := makeSet(10)
	got := s.Run(context.Background(), set)

	require.Len(t, got, len(set))
	for i := range set {
		assert.Equal(t, set[i].URL, got[i].URL)
		assert.Equal(t, harvest.StatusDownloaded, got[i].Status)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	t.Parallel()

	proc := &markProcessor{}
	s := New(Config{ChunkSize: 1, Concurrency: 2}, proc, nil)

	s.Run(context.Background(), makeSet(40))
	assert.LessOrEqual(t, proc.peak.Load(), int32(2))
}

func TestRunEmptySet(t *testing.T) {
	t.Parallel()

	proc := &markProcessor{}
	s := New(Config{}, proc, nil)
	assert.Nil(t, s.Run(context.Background(), nil))
}

func TestRunWritesChunkArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	proc := &markProcessor{}
	s := New(Config{ChunkSize: 2, Concurrency: 2, ArtifactDir: dir}, proc, nil)

	s.Run(context.Background(), makeSet(5))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3) // ceil(5/2)
	for _, e := range entries {
		// Atomic saves leave no temp files next to the artifacts.
		assert.Regexp(t, `^chunk_\d+\.csv$`, e.Name())
	}

	f, err := os.Open(filepath.Join(dir, "chunk_0.csv"))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	set, err := checkpoint.Decode(f)
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Equal(t, harvest.StatusDownloaded, set[0].Status)
}

func TestRunCanceledContextCarriesInputsThrough(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &markProcessor{}
	s := New(Config{ChunkSize: 2, Concurrency: 2}, proc, nil)

	set := makeSet(6)
	got := s.Run(ctx, set)

	require.Len(t, got, len(set))
	for i := range set {
		assert.Equal(t, set[i].URL, got[i].URL)
		assert.Equal(t, harvest.StatusPending, got[i].Status)
	}
}
