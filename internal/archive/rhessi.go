package archive

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// RHESSIBaseURL is the root of the RHESSI data tree.
const RHESSIBaseURL = "https://hesperia.gsfc.nasa.gov/hessidata"

// filedbTimeLayout is how the observing summary file database writes times.
const filedbTimeLayout = "02-Jan-06 15:04:05"

// SummaryFile is one entry of the RHESSI observing summary file database.
type SummaryFile struct {
	Name  string
	Start time.Time
	End   time.Time
}

// RHESSI locates observing summary files for a time range.
type RHESSI struct {
	fetcher *Fetcher
	baseURL string
}

// NewRHESSI creates a RHESSI locator using fetcher. An empty baseURL selects
// RHESSIBaseURL.
func NewRHESSI(fetcher *Fetcher, baseURL string) *RHESSI {
	if baseURL == "" {
		baseURL = RHESSIBaseURL
	}
	return &RHESSI{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/")}
}

// SummaryFiles downloads the observing summary files overlapping [start, end]
// and returns their local paths in time order.
func (r *RHESSI) SummaryFiles(ctx context.Context, start, end time.Time) ([]string, error) {
	var entries []SummaryFile
	for _, month := range monthsBetween(start, end) {
		dbPath, err := r.fetcher.Fetch(ctx, r.filedbURL(month))
		if err != nil {
			return nil, errors.Wrapf(err, "rhessi filedb %s", month.Format("2006-01"))
		}
		monthEntries, err := readFiledbFile(dbPath)
		if err != nil {
			return nil, err
		}
		entries = append(entries, monthEntries...)
	}

	var paths []string
	for _, e := range entries {
		if e.End.Before(start) || e.Start.After(end) {
			continue
		}
		p, err := r.fetcher.Fetch(ctx, r.fileURL(e.Name))
		if err != nil {
			return nil, errors.Wrapf(err, "rhessi summary %s", e.Name)
		}
		paths = append(paths, p)
	}

	if len(paths) == 0 {
		return nil, errors.Wrapf(ErrNoData, "rhessi: no observing summary between %s and %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return paths, nil
}

func (r *RHESSI) filedbURL(month time.Time) string {
	return r.baseURL + "/dbase/hsi_obssumm_filedb_" + month.Format("200601") + ".txt"
}

// fileURL maps a filedb name (".fit") to the catalog copy (".fits").
func (r *RHESSI) fileURL(name string) string {
	if strings.HasSuffix(name, ".fit") {
		name += "s"
	}
	return r.baseURL + "/metadata/catalog/" + name
}

func readFiledbFile(path string) ([]SummaryFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ParseFiledb(f)
}

// ParseFiledb parses an hsi_obssumm_filedb listing. Header lines and rows
// that do not describe an observing summary file are skipped. Row format:
//
//	Filename Orb_st Orb_end Start_date Start_time End_date End_time Status Npackets
func ParseFiledb(r io.Reader) ([]SummaryFile, error) {
	var out []SummaryFile
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 7 || !strings.HasPrefix(fields[0], "hsi_obssumm_") {
			continue
		}
		start, err := time.ParseInLocation(filedbTimeLayout, titleMonth(fields[3])+" "+fields[4], time.UTC)
		if err != nil {
			continue
		}
		end, err := time.ParseInLocation(filedbTimeLayout, titleMonth(fields[5])+" "+fields[6], time.UTC)
		if err != nil {
			continue
		}
		out = append(out, SummaryFile{Name: fields[0], Start: start, End: end})
	}
	return out, scanner.Err()
}

// titleMonth turns "01-JAN-11" into "01-Jan-11".
func titleMonth(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 || len(parts[1]) != 3 {
		return date
	}
	parts[1] = strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
	return strings.Join(parts, "-")
}

func monthsBetween(start, end time.Time) []time.Time {
	var out []time.Time
	m := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !m.After(end) {
		out = append(out, m)
		m = m.AddDate(0, 1, 0)
	}
	return out
}
