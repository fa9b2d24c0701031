package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// GBMBaseURL is the root of the Fermi GBM daily data tree.
const GBMBaseURL = "https://heasarc.gsfc.nasa.gov/FTP/fermi/data/gbm/daily"

// maxGBMVersion bounds the file versions tried per day.
const maxGBMVersion = 2

// GBM locates Fermi GBM daily CSPEC files for one detector.
type GBM struct {
	fetcher  *Fetcher
	baseURL  string
	detector string
}

// NewGBM creates a GBM locator. Empty baseURL and detector select GBMBaseURL
// and the n1 NaI detector.
func NewGBM(fetcher *Fetcher, baseURL, detector string) *GBM {
	if baseURL == "" {
		baseURL = GBMBaseURL
	}
	if detector == "" {
		detector = "n1"
	}
	return &GBM{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/"), detector: detector}
}

// DailyFiles downloads one CSPEC file per UTC day touched by [start, end].
// Days with no file are skipped; if no day has one, ErrNoData is returned.
func (g *GBM) DailyFiles(ctx context.Context, start, end time.Time) ([]string, error) {
	var paths []string
	for _, day := range daysBetween(start, end) {
		p, err := g.fetchDay(ctx, day)
		if IsNoData(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return nil, errors.Wrapf(ErrNoData, "gbm: no %s cspec between %s and %s",
			g.detector, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return paths, nil
}

func (g *GBM) fetchDay(ctx context.Context, day time.Time) (string, error) {
	var lastErr error
	for v := 0; v <= maxGBMVersion; v++ {
		p, err := g.fetcher.Fetch(ctx, g.fileURL(day, v))
		if err == nil {
			return p, nil
		}
		if !IsNoData(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func (g *GBM) fileURL(day time.Time, version int) string {
	return fmt.Sprintf("%s/%s/current/glg_cspec_%s_%s_v%02d.pha",
		g.baseURL, day.Format("2006/01/02"), g.detector, day.Format("060102"), version)
}

func daysBetween(start, end time.Time) []time.Time {
	var out []time.Time
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for !d.After(end) {
		out = append(out, d)
		d = d.AddDate(0, 0, 1)
	}
	return out
}
