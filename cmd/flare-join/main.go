// flare-join - Merge a HER and a GOES event list into the unified flare catalog
//
// Flares are matched on GOES peak time (outer join). Matched flares keep the
// earliest start, the latest end and the larger GOES class. The result is
// written to the flare list directory (FLARE_OUTPUT_DIR, default
// ./flare_lists_csv).
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/flare-join ./cmd/flare-join

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/common"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	cfg := common.DefaultConfig()

	verbose := flag.Bool("v", false, "Verbose (debug) logging")
	outName := flag.String("out", "gev_her.csv", "Output file name (.csv, .csv.gz or .parquet)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "flare-join v%s - HER/GEV Flare List Joiner\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] <her.csv> <gev.csv>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Joins a HER catalog and a GOES event list on flare peak time.\n")
		fmt.Fprintf(os.Stderr, "Output directory: %s (set FLARE_OUTPUT_DIR to change)\n\n", cfg.OutputDir)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s her_2010-12-31_2011-12-31.csv gev_2011-01-01_2012-01-01.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -out gev_her.parquet her.csv.gz gev.csv.gz\n", os.Args[0])
	}
	flag.Parse()

	common.SetupLogging(cfg.LogLevel, *verbose)

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Error: need <her.csv> and <gev.csv>\n")
		flag.Usage()
		os.Exit(1)
	}
	herPath, gevPath := flag.Arg(0), flag.Arg(1)
	outPath := filepath.Join(cfg.OutputDir, *outName)

	common.Banner(fmt.Sprintf("Flare Join v%s", Version))
	logrus.Infof("HER:    %s", herPath)
	logrus.Infof("GEV:    %s", gevPath)
	logrus.Infof("Output: %s", outPath)

	startTime := time.Now()

	her, herStats, err := catalog.ReadEventsFile(herPath, catalog.HER)
	if err != nil {
		logrus.Fatalf("Cannot read HER catalog: %v", err)
	}
	logrus.Infof("[HER] Parsed %d of %d rows (%d failed)", herStats.SuccessfullyParsed, herStats.TotalRowsRead, herStats.FailedRows)

	gev, gevStats, err := catalog.ReadEventsFile(gevPath, catalog.GEV)
	if err != nil {
		logrus.Fatalf("Cannot read GEV catalog: %v", err)
	}
	logrus.Infof("[GEV] Parsed %d of %d rows (%d failed)", gevStats.SuccessfullyParsed, gevStats.TotalRowsRead, gevStats.FailedRows)

	joined, stats := catalog.Join(her, gev)

	if err := catalog.WriteEvents(outPath, joined); err != nil {
		logrus.Fatalf("Write failed: %v", err)
	}

	elapsed := time.Since(startTime)

	logrus.Info("")
	common.Banner("Final Statistics")
	logrus.Infof("Matched:  %d", stats.Matched)
	logrus.Infof("HER only: %d", stats.HEROnly)
	logrus.Infof("GEV only: %d", stats.GEVOnly)
	logrus.Infof("Written:  %d flares", len(joined))
	logrus.Infof("Elapsed:  %v", elapsed.Round(time.Millisecond))
	logrus.Info("=========================================================")
}
