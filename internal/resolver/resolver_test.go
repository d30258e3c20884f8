package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

type stubFetcher struct {
	resp harvest.FetchResponse
	err  error
}

func (f *stubFetcher) Fetch(context.Context, string) (harvest.FetchResponse, error) {
	return f.resp, f.err
}

const dashboardHTML = `<!DOCTYPE html>
<html><body>
<div id="header"><img src="/assets/logo.png"/></div>
<div id="images">
  <img src="https://divulgacion.tse.gob.sv/actas/ALCALDE/00001-a.jpeg"/>
  <img src="/actas/ALCALDE/00001-b.jpeg"/>
  <img alt="broken"/>
</div>
</body></html>`

func TestFileNames(t *testing.T) {
	t.Parallel()

	r := New(&stubFetcher{resp: harvest.FetchResponse{StatusCode: 200, Body: []byte(dashboardHTML)}}, zap.NewNop())
	names, err := r.FileNames(context.Background(), "https://example.test/dashboard-jrv-1-4.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001-a.jpeg", "00001-b.jpeg"}, names)
}

func TestFileNamesEmptyDashboard(t *testing.T) {
	t.Parallel()

	html := `<html><body><div id="images"></div></body></html>`
	r := New(&stubFetcher{resp: harvest.FetchResponse{StatusCode: 200, Body: []byte(html)}}, zap.NewNop())
	names, err := r.FileNames(context.Background(), "https://example.test/dashboard-jrv-2-4.html")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFileNamesIgnoresImagesOutsideContainer(t *testing.T) {
	t.Parallel()

	html := `<html><body><img src="/banner.jpeg"/><div id="other"><img src="/x.jpeg"/></div></body></html>`
	r := New(&stubFetcher{resp: harvest.FetchResponse{StatusCode: 200, Body: []byte(html)}}, zap.NewNop())
	names, err := r.FileNames(context.Background(), "https://example.test/dashboard-jrv-3-4.html")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFileNamesHTTPError(t *testing.T) {
	t.Parallel()

	r := New(&stubFetcher{resp: harvest.FetchResponse{StatusCode: 503}}, zap.NewNop())
	_, err := r.FileNames(context.Background(), "https://example.test/dashboard-jrv-4-4.html")
	require.Error(t, err)

	var resolveErr *harvest.ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, harvest.ResolveHTTP, resolveErr.Kind)
	assert.Equal(t, 503, resolveErr.StatusCode)
}

func TestFileNamesTransportError(t *testing.T) {
	t.Parallel()

	r := New(&stubFetcher{err: errors.New("connection reset")}, zap.NewNop())
	_, err := r.FileNames(context.Background(), "https://example.test/dashboard-jrv-5-4.html")
	require.Error(t, err)

	var resolveErr *harvest.ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, harvest.ResolveOther, resolveErr.Kind)
}
