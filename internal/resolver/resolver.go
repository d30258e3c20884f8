// Package resolver extracts tally-sheet file names from dashboard pages.
package resolver

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

// imageSelector locates the image elements inside the dashboard's content
// container. Each img src points at one tally-sheet file.
const imageSelector = "#images img"

// Resolver fetches a dashboard page and lists the files it references.
type Resolver struct {
	fetcher harvest.Fetcher
	logger  *zap.Logger
}

// New builds a Resolver on top of a Fetcher.
func New(fetcher harvest.Fetcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, logger: logger}
}

// FileNames returns the ordered image file names referenced by the dashboard.
// An empty slice means the dashboard lists no images, which callers treat as
// "not found" rather than a failure.
func (r *Resolver) FileNames(ctx context.Context, dashboardURL string) ([]string, error) {
	resp, err := r.fetcher.Fetch(ctx, dashboardURL)
	if err != nil {
		resolveErr := harvest.ClassifyResolveError(dashboardURL, err)
		r.logger.Error("dashboard fetch failed",
			zap.String("url", dashboardURL),
			zap.String("kind", string(resolveErr.Kind)),
			zap.Error(err),
		)
		return nil, resolveErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Error("dashboard returned error status",
			zap.String("url", dashboardURL),
			zap.Int("status_code", resp.StatusCode),
		)
		return nil, &harvest.ResolveError{URL: dashboardURL, Kind: harvest.ResolveHTTP, StatusCode: resp.StatusCode}
	}

	names, err := extractFileNames(resp.Body)
	if err != nil {
		return nil, &harvest.ResolveError{URL: dashboardURL, Kind: harvest.ResolveOther, Err: err}
	}
	return names, nil
}

func extractFileNames(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse dashboard html: %w", err)
	}

	var names []string
	doc.Find(imageSelector).Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}
		parts := strings.Split(src, "/")
		names = append(names, parts[len(parts)-1])
	})
	return names, nil
}
