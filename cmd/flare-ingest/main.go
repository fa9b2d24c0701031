// flare-ingest - Load flare catalogs and observation lists into ClickHouse
//
// Accepts a unified catalog (flare-join / flare-hek output, .csv, .csv.gz or
// .parquet) and/or a wide observation list (flare-observe output) and inserts
// them into the events and observations tables over the native protocol.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/flare-ingest ./cmd/flare-ingest

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/common"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
	"github.com/KI7MT/ki7mt-flare-lab/internal/store"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	cfg := common.DefaultConfig()

	eventsPath := flag.String("events", "", "Unified flare catalog to load")
	obsPath := flag.String("observations", "", "Observation list to load (its flares are loaded too)")
	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse native protocol address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	batchSize := flag.Int("batch", store.DefaultBatchSize, "Rows per INSERT")
	create := flag.Bool("create", false, "Create database and tables before loading")
	truncate := flag.Bool("truncate", false, "Truncate tables before loading")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "flare-ingest v%s - Flare Catalog ClickHouse Loader\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -create -events flare_lists_csv/gev_her.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -truncate -observations flare_lists_csv/instr_observed_flare_list.csv\n", os.Args[0])
	}
	flag.Parse()

	common.SetupLogging(cfg.LogLevel, *verbose)

	if *eventsPath == "" && *obsPath == "" && !*create {
		fmt.Fprintf(os.Stderr, "Error: nothing to do; give -events, -observations or -create\n")
		flag.Usage()
		os.Exit(1)
	}

	common.Banner(fmt.Sprintf("Flare Ingest v%s", Version))
	logrus.Infof("ClickHouse: %s/%s", *chHost, *chDB)
	if *eventsPath != "" {
		logrus.Infof("Events:     %s", *eventsPath)
	}
	if *obsPath != "" {
		logrus.Infof("Obs list:   %s", *obsPath)
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

	logrus.Infof("Connecting to ClickHouse at %s...", *chHost)
	w, err := store.Dial(ctx, store.Options{
		Addr:      *chHost,
		Database:  *chDB,
		User:      cfg.ClickHouseUser,
		Password:  cfg.ClickHousePassword,
		BatchSize: *batchSize,
	})
	if err != nil {
		logrus.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer w.Close()

	if *create {
		if err := w.CreateTables(ctx); err != nil {
			logrus.Fatalf("Create failed: %v", err)
		}
		logrus.Infof("Schema ready in %s", *chDB)
	}
	if *truncate {
		for _, table := range []string{store.EventsTable, store.ObservationsTable} {
			if err := w.Truncate(ctx, table); err != nil {
				logrus.Warnf("Truncate warning: %v", err)
			}
		}
	}

	startTime := time.Now()

	var events []solar.Event
	var observations []store.Observation

	if *eventsPath != "" {
		loaded, err := catalog.ReadEvents(*eventsPath)
		if err != nil {
			logrus.Fatalf("Cannot read catalog: %v", err)
		}
		logrus.Infof("[%s] Parsed %d flares", *eventsPath, len(loaded))
		events = append(events, loaded...)
	}

	if *obsPath != "" {
		table, err := catalog.ReadTableFile(*obsPath)
		if err != nil {
			logrus.Fatalf("Cannot read observation list: %v", err)
		}
		loaded, obs, stats, err := store.Unpivot(table)
		if err != nil {
			logrus.Fatalf("Bad observation list: %v", err)
		}
		logrus.Infof("[%s] Parsed %d of %d rows (%d failed), %d observation records",
			*obsPath, stats.SuccessfullyParsed, stats.TotalRowsRead, stats.FailedRows, len(obs))
		events = append(events, loaded...)
		observations = obs
	}

	nEvents, err := w.InsertEvents(ctx, events)
	if err != nil {
		logrus.Fatalf("Insert error: %v", err)
	}
	nObs, err := w.InsertObservations(ctx, observations)
	if err != nil {
		logrus.Fatalf("Insert error: %v", err)
	}

	elapsed := time.Since(startTime)
	total := nEvents + nObs

	logrus.Info("")
	common.Banner("Final Statistics")
	logrus.Infof("Events:        %d", nEvents)
	logrus.Infof("Observations:  %d", nObs)
	logrus.Infof("Elapsed:       %v", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		logrus.Infof("Rate:          %.0f records/sec", float64(total)/elapsed.Seconds())
	}
	logrus.Info("=========================================================")
}
