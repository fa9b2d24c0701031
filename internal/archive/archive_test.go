package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const filedbSample = `HESSI Filedb File:
Created: 29-Jan-2011 23:04:11
Number of Files: 3
Filename                           Orb_st Orb_end   Start_time            End_time            Status_flag npackets Drift_start Drift_end Data source
hsi_obssumm_20110101_041.fit        0      0  01-Jan-11 00:00:00  02-Jan-11 00:00:00        0     0  0.000  0.000 
hsi_obssumm_20110102_040.fit        0      0  02-JAN-11 00:00:00  03-Jan-11 00:00:00        0     0  0.000  0.000 
hsi_obssumm_20110103_bad.fit        0      0  not-a-date 00:00:00  03-Jan-11 00:00:00        0     0  0.000  0.000 
`

func TestParseFiledb(t *testing.T) {
	files, err := ParseFiledb(strings.NewReader(filedbSample))
	if err != nil {
		t.Fatalf("ParseFiledb failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(files))
	}
	want := time.Date(2011, 1, 2, 0, 0, 0, 0, time.UTC)
	if !files[1].Start.Equal(want) {
		t.Errorf("start = %v, want %v", files[1].Start, want)
	}
	if files[0].Name != "hsi_obssumm_20110101_041.fit" {
		t.Errorf("name = %q", files[0].Name)
	}
}

func TestFetcherCachesDownloads(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 5*time.Second)
	var downloaded int64
	f.OnDownload = func(n int64) { downloaded += n }

	for i := 0; i < 2; i++ {
		p, err := f.Fetch(context.Background(), srv.URL+"/a/b/file.fits")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read cached file: %v", err)
		}
		if string(data) != "payload" {
			t.Fatalf("cached content = %q", data)
		}
	}
	if hits != 1 {
		t.Errorf("expected 1 request, got %d", hits)
	}
	if downloaded != int64(len("payload")) {
		t.Errorf("downloaded = %d", downloaded)
	}
}

func TestFetcherNotFoundIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 5*time.Second)
	_, err := f.Fetch(context.Background(), srv.URL+"/missing.pha")
	if !IsNoData(err) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestFetcherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 5*time.Second)
	_, err := f.Fetch(context.Background(), srv.URL+"/x.fits")
	if err == nil || IsNoData(err) {
		t.Fatalf("expected a non-NoData error, got %v", err)
	}
}

func TestRHESSISummaryFiles(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		switch {
		case r.URL.Path == "/dbase/hsi_obssumm_filedb_201101.txt":
			w.Write([]byte(filedbSample))
		case strings.HasPrefix(r.URL.Path, "/metadata/catalog/"):
			w.Write([]byte("FITS"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewRHESSI(NewFetcher(t.TempDir(), 5*time.Second), srv.URL)
	start := time.Date(2011, 1, 2, 10, 0, 0, 0, time.UTC)
	paths, err := r.SummaryFiles(context.Background(), start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("SummaryFiles failed: %v", err)
	}
	if len(paths) != 1 || !strings.HasSuffix(paths[0], "hsi_obssumm_20110102_040.fits") {
		t.Fatalf("unexpected paths: %v", paths)
	}
}

func TestRHESSINoOverlap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(filedbSample))
	}))
	defer srv.Close()

	r := NewRHESSI(NewFetcher(t.TempDir(), 5*time.Second), srv.URL)
	start := time.Date(2011, 1, 20, 0, 0, 0, 0, time.UTC)
	_, err := r.SummaryFiles(context.Background(), start, start.Add(time.Hour))
	if !IsNoData(err) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestGBMDailyFilesFallsBackToLaterVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2012/01/27/current/glg_cspec_n1_120127_v01.pha" {
			w.Write([]byte("PHA"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	g := NewGBM(NewFetcher(t.TempDir(), 5*time.Second), srv.URL, "")
	start := time.Date(2012, 1, 27, 1, 0, 0, 0, time.UTC)
	paths, err := g.DailyFiles(context.Background(), start, start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("DailyFiles failed: %v", err)
	}
	if len(paths) != 1 || !strings.HasSuffix(paths[0], "glg_cspec_n1_120127_v01.pha") {
		t.Fatalf("unexpected paths: %v", paths)
	}
}

func TestGBMNoData(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	g := NewGBM(NewFetcher(t.TempDir(), 5*time.Second), srv.URL, "n1")
	start := time.Date(2012, 1, 27, 23, 0, 0, 0, time.UTC)
	_, err := g.DailyFiles(context.Background(), start, start.Add(2*time.Hour))
	if !IsNoData(err) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestDaysBetweenSpansMidnight(t *testing.T) {
	start := time.Date(2012, 1, 27, 23, 0, 0, 0, time.UTC)
	days := daysBetween(start, start.Add(2*time.Hour))
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
}
