// flare-hek - Build a flare list from the Heliophysics Event Knowledgebase
//
// Queries HEK for FL events in a date range, optionally keeping only flares
// above a GOES class threshold, and writes them in the unified schema.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/flare-hek ./cmd/flare-hek

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/common"
	"github.com/KI7MT/ki7mt-flare-lab/internal/hek"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const dateLayout = "2006-01-02"

func main() {
	cfg := common.DefaultConfig()

	startStr := flag.String("start", "", "Start date (YYYY-MM-DD, required)")
	endStr := flag.String("end", "", "End date (YYYY-MM-DD, default: start + 1 day)")
	minClass := flag.String("min-class", "", "Keep flares strictly above this GOES class (e.g. C2.5)")
	instr := flag.String("instrument", "", "Keep events reported by this instrument only (e.g. GOES)")
	hekURL := flag.String("url", cfg.HEKURL, "HEK endpoint")
	timeout := flag.Duration("timeout", cfg.HTTPTimeout, "HTTP timeout per request")
	outName := flag.String("out", "", "Output file name (default: hek_<start>_<end>.csv)")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "flare-hek v%s - HEK Flare List Generator\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -start 2013-11-08 -end 2013-11-09\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -start 2013-11-08 -end 2013-11-09 -min-class C2.5\n", os.Args[0])
	}
	flag.Parse()

	common.SetupLogging(cfg.LogLevel, *verbose)

	if *startStr == "" {
		fmt.Fprintf(os.Stderr, "Error: -start is required\n")
		flag.Usage()
		os.Exit(1)
	}
	start, err := time.Parse(dateLayout, *startStr)
	if err != nil {
		logrus.Fatalf("Invalid start date: %v", err)
	}
	end := start.AddDate(0, 0, 1)
	if *endStr != "" {
		if end, err = time.Parse(dateLayout, *endStr); err != nil {
			logrus.Fatalf("Invalid end date: %v", err)
		}
	}

	q := hek.Query{Start: start, End: end, Instrument: *instr}
	if *minClass != "" {
		if q.MinClass, err = solar.ParseGOESClass(*minClass); err != nil {
			logrus.Fatalf("Invalid -min-class: %v", err)
		}
	}

	name := *outName
	if name == "" {
		name = fmt.Sprintf("hek_%s_%s.csv", start.Format(dateLayout), end.Format(dateLayout))
	}
	outPath := filepath.Join(cfg.OutputDir, name)

	common.Banner(fmt.Sprintf("Flare HEK v%s", Version))
	logrus.Infof("Range:     %s to %s", start.Format(dateLayout), end.Format(dateLayout))
	if !q.MinClass.IsZero() {
		logrus.Infof("Min class: > %s", q.MinClass)
	}
	logrus.Infof("Endpoint:  %s", *hekURL)
	logrus.Infof("Output:    %s", outPath)

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
	client := hek.NewClient(*hekURL, *timeout)
	events, err := client.SearchEvents(ctx, q)
	if err != nil {
		logrus.Fatalf("HEK search failed: %v", err)
	}

	if err := catalog.WriteEvents(outPath, events); err != nil {
		logrus.Fatalf("Write failed: %v", err)
	}

	elapsed := time.Since(startTime)

	logrus.Info("")
	common.Banner("Final Statistics")
	logrus.Infof("Flares:  %d", len(events))
	logrus.Infof("Elapsed: %v", elapsed.Round(time.Millisecond))
	logrus.Info("=========================================================")
}
