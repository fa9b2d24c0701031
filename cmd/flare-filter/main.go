// flare-filter - Keep observed flares that appear in a reference list
//
// Inner-joins an observation list with a reference catalog on flare peak
// time and writes the matching rows, with the reference columns appended, to
// filtered_flare_list.csv.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/flare-filter ./cmd/flare-filter

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

	observedPeak := flag.String("observed-peak", "FLARE_PEAK", "Peak column in the observation list")
	referencePeak := flag.String("reference-peak", "gpeak", "Peak column in the reference list")
	outName := flag.String("out", "filtered_flare_list.csv", "Output file name in the flare list directory")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "flare-filter v%s - Reference List Filter\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] <observed.csv> <reference.csv>\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s flare_lists_csv/instr_observed_flare_list.csv goes_flares_2013.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -reference-peak event_peaktime observed.csv hek.csv\n", os.Args[0])
	}
	flag.Parse()

	common.SetupLogging(cfg.LogLevel, *verbose)

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Error: need <observed.csv> and <reference.csv>\n")
		flag.Usage()
		os.Exit(1)
	}
	observedPath, referencePath := flag.Arg(0), flag.Arg(1)
	outPath := filepath.Join(cfg.OutputDir, *outName)

	common.Banner(fmt.Sprintf("Flare Filter v%s", Version))
	logrus.Infof("Observed:  %s (%s)", observedPath, *observedPeak)
	logrus.Infof("Reference: %s (%s)", referencePath, *referencePeak)
	logrus.Infof("Output:    %s", outPath)

	startTime := time.Now()

	observed, err := catalog.ReadTableFile(observedPath)
	if err != nil {
		logrus.Fatalf("Cannot read observed list: %v", err)
	}
	reference, err := catalog.ReadTableFile(referencePath)
	if err != nil {
		logrus.Fatalf("Cannot read reference list: %v", err)
	}

	filtered, stats, err := catalog.FilterByPeak(observed, *observedPeak, reference, *referencePeak)
	if err != nil {
		logrus.Fatalf("Filter failed: %v", err)
	}
	if err := catalog.WriteTableFile(outPath, filtered); err != nil {
		logrus.Fatalf("Write failed: %v", err)
	}

	elapsed := time.Since(startTime)

	logrus.Info("")
	common.Banner("Final Statistics")
	logrus.Infof("Observed rows:  %d", stats.ObservedRows)
	logrus.Infof("Reference rows: %d", stats.ReferenceRows)
	logrus.Infof("Matched:        %d", stats.Matched)
	logrus.Infof("Unparseable:    %d", stats.Unparseable)
	logrus.Infof("Elapsed:        %v", elapsed.Round(time.Millisecond))
	logrus.Info("=========================================================")
}
