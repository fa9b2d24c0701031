// flare-observe - Decide per flare whether RHESSI and Fermi GBM observed it
//
// For every flare in a unified catalog the RHESSI observing summary and the
// Fermi GBM good time intervals are fetched (and cached), and the observed
// flag plus whole/rise/fall coverage fractions are written as the wide
// observation list consumed by flare-stats.
//
// Flares with start/peak/end out of order get -1 in every column; flares the
// archives have no data for get zeros.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/flare-observe ./cmd/flare-observe

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/archive"
	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/common"
	"github.com/KI7MT/ki7mt-flare-lab/internal/instrument"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
	"github.com/KI7MT/ki7mt-flare-lab/internal/store"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	cfg := common.DefaultConfig()

	instruments := flag.String("instruments", "rsi,fermi", "Comma-separated instruments to evaluate (rsi, fermi)")
	outName := flag.String("out", "instr_observed_flare_list.csv", "Output file name in the flare list directory")
	cacheDir := flag.String("cache", cfg.CacheDir, "Archive download cache")
	timeout := flag.Duration("timeout", cfg.HTTPTimeout, "HTTP timeout per download")
	detector := flag.String("gbm-detector", "n1", "Fermi GBM detector")
	limit := flag.Int("limit", 0, "Evaluate at most N flares (0 = all)")
	toCH := flag.Bool("ch", false, "Also insert events and observations into ClickHouse")
	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse native protocol address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	silent := flag.Bool("silent", false, "Disable progress reporting")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "flare-observe v%s - Instrument Observability Calculator\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] <unified-catalog>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Reads a catalog written by flare-join or flare-hek (.csv, .csv.gz, .parquet).\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s flare_lists_csv/gev_her.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -instruments fermi -limit 20 -v flare_lists_csv/hek_2013-11-08_2013-11-09.csv\n", os.Args[0])
	}
	flag.Parse()

	common.SetupLogging(cfg.LogLevel, *verbose)

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: missing <unified-catalog> argument\n")
		flag.Usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)
	outPath := filepath.Join(cfg.OutputDir, *outName)

	events, err := catalog.ReadEvents(inputPath)
	if err != nil {
		logrus.Fatalf("Cannot read catalog: %v", err)
	}
	if *limit > 0 && len(events) > *limit {
		events = events[:*limit]
	}

	common.Banner(fmt.Sprintf("Flare Observe v%s", Version))
	logrus.Infof("Input:       %s (%d flares)", inputPath, len(events))
	logrus.Infof("Instruments: %s", *instruments)
	logrus.Infof("Cache:       %s", *cacheDir)
	logrus.Infof("Output:      %s", outPath)

	stats := common.NewStats(len(events), 10*time.Second)
	stats.SetSilent(*silent)

	fetcher := archive.NewFetcher(*cacheDir, *timeout)
	fetcher.OnDownload = func(n int64) { stats.AddBytes(uint64(n)) }

	var observers []instrument.Observer
	for _, name := range strings.Split(*instruments, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case instrument.RHESSIName, "rhessi":
			observers = append(observers, instrument.NewRHESSI(archive.NewRHESSI(fetcher, "")))
		case instrument.FermiName, "gbm":
			observers = append(observers, instrument.NewFermi(archive.NewGBM(fetcher, "", *detector)))
		case "":
		default:
			logrus.Fatalf("Unknown instrument %q", name)
		}
	}
	if len(observers) == 0 {
		logrus.Fatal("No instruments selected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Warn("Shutdown requested...")
		cancel()
	}()

	startTime := time.Now()
	stats.StartReporter()

	var observations []store.Observation
	sentinels := 0
	for _, e := range events {
		flareStart := time.Now()
		recs, failed, ok := observeFlare(ctx, observers, e)
		if !ok {
			break
		}
		for _, rec := range recs {
			if rec.IsSentinel() {
				sentinels++
			}
			observations = append(observations, store.Observation{Peak: e.Peak, Record: rec})
		}
		stats.AddFlare(time.Since(flareStart), failed)
	}
	stats.StopReporter()

	if ctx.Err() != nil {
		logrus.Warn("Interrupted; writing flares evaluated so far")
		events = events[:int(stats.GetFlares())]
	}

	if err := catalog.WriteTableFile(outPath, store.Pivot(events, observations)); err != nil {
		logrus.Fatalf("Write failed: %v", err)
	}

	if *toCH {
		w, err := store.Dial(context.Background(), store.Options{
			Addr:     *chHost,
			Database: *chDB,
			User:     cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			logrus.Fatalf("ClickHouse connection failed: %v", err)
		}
		defer w.Close()
		if _, err := w.InsertEvents(context.Background(), events); err != nil {
			logrus.Fatalf("Insert events failed: %v", err)
		}
		n, err := w.InsertObservations(context.Background(), observations)
		if err != nil {
			logrus.Fatalf("Insert observations failed: %v", err)
		}
		logrus.Infof("Inserted %d observation rows into %s", n, *chDB)
	}

	elapsed := time.Since(startTime)

	logrus.Info("")
	common.Banner("Final Statistics")
	logrus.Infof("Flares:     %d", stats.GetFlares())
	logrus.Infof("Failed:     %d", stats.GetFailed())
	logrus.Infof("Malformed:  %d records", sentinels)
	logrus.Infof("Downloaded: %.1f MiB", float64(stats.GetBytes())/(1024*1024))
	logrus.Infof("Elapsed:    %v", elapsed.Round(time.Millisecond))
	logrus.Info("=========================================================")
}

// observeFlare runs every observer on e. An observer error gives that
// instrument a zero record and marks the flare failed. ok is false when ctx
// is cancelled before the flare is complete; the partial records are dropped.
func observeFlare(ctx context.Context, observers []instrument.Observer, e solar.Event) (recs []instrument.Record, failed, ok bool) {
	for _, o := range observers {
		if ctx.Err() != nil {
			return nil, false, false
		}
		rec, err := o.Observe(ctx, e)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, false
			}
			logrus.Warnf("[%s] flare %s: %v", o.Name(), e.Peak.Format(solar.TimeLayout), err)
			rec = instrument.ZeroRecord(o.Name())
			failed = true
		}
		recs = append(recs, rec)
	}
	return recs, failed, true
}
