// flare-stats - Multi-instrument observation statistics
//
// Reads the merged observation list (CSV, or ClickHouse with -ch), drops
// malformed and A-class flares, and reports how often each instrument caught
// a flare: fully observed counts, common-window success rates, instrument
// subsets, durations and class distributions. Tables and figures go to the
// stats directory.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/flare-stats ./cmd/flare-stats

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/common"
	"github.com/KI7MT/ki7mt-flare-lab/internal/interval"
	"github.com/KI7MT/ki7mt-flare-lab/internal/obsstats"
	"github.com/KI7MT/ki7mt-flare-lab/internal/plots"
	"github.com/KI7MT/ki7mt-flare-lab/internal/store"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const (
	dateLayout  = "2006-01-02"
	subsetsFile = "instrument_subsets.csv"
)

func main() {
	cfg := common.DefaultConfig()

	outDir := flag.String("out-dir", cfg.StatsDir(), "Directory for tables and figures")
	instFile := flag.String("instruments-file", "", "Instrument table (YAML, default: built-in)")
	lifeFile := flag.String("lifetimes", "", "Instrument lifetime CSV (default: instrument_info dir, else built-in)")
	winStart := flag.String("window-start", obsstats.CommonWindow.Start.Format(dateLayout), "Common window start (exclusive)")
	winEnd := flag.String("window-end", obsstats.CommonWindow.End.Format(dateLayout), "Common window end (exclusive)")
	minSubset := flag.Int("min-subset", 1, "Drop instrument subsets with fewer flares")
	sortBy := flag.String("sort", "cardinality", "Subset order: cardinality or degree")
	noPlots := flag.Bool("no-plots", false, "Skip figures")
	overlapA := flag.String("overlap-a", "", "Draw an interval overlap figure: A intervals as start:end,...")
	overlapB := flag.String("overlap-b", "", "B intervals for -overlap-a")
	fromCH := flag.Bool("ch", false, "Read observations from ClickHouse instead of a CSV")
	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse native protocol address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "flare-stats v%s - Multi-Instrument Observation Statistics\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] <observation-list>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [OPTIONS] -ch\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s flare_lists_csv/instr_observed_flare_list.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -ch -sort degree -min-subset 5\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -overlap-a 1:3,5:9,12:15 -overlap-b 2:6,8:10,14:18 list.csv\n", os.Args[0])
	}
	flag.Parse()

	common.SetupLogging(cfg.LogLevel, *verbose)

	if !*fromCH && flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: missing <observation-list> argument\n")
		flag.Usage()
		os.Exit(1)
	}

	insts := obsstats.DefaultInstruments()
	if *instFile != "" {
		var err error
		if insts, err = obsstats.LoadInstruments(*instFile); err != nil {
			logrus.Fatalf("Cannot load instruments: %v", err)
		}
	}

	lifePath := *lifeFile
	if lifePath == "" {
		candidate := filepath.Join(cfg.InstrumentInfoDir(), obsstats.LifetimeFile)
		if _, err := os.Stat(candidate); err == nil {
			lifePath = candidate
		}
	}
	lifetimes, err := obsstats.ReadLifetimes(lifePath, time.Now().UTC())
	if err != nil {
		logrus.Fatalf("Cannot read lifetimes: %v", err)
	}

	order, ok := obsstats.ParseSubsetOrder(*sortBy)
	if !ok {
		logrus.Fatalf("Unknown -sort %q", *sortBy)
	}
	window, err := parseWindow(*winStart, *winEnd)
	if err != nil {
		logrus.Fatalf("Invalid window: %v", err)
	}

	source := "clickhouse://" + *chHost + "/" + *chDB
	if !*fromCH {
		source = flag.Arg(0)
	}

	common.Banner(fmt.Sprintf("Flare Stats v%s", Version))
	logrus.Infof("Source:      %s", source)
	logrus.Infof("Instruments: %d", len(insts))
	logrus.Infof("Window:      %s .. %s", window.Start.Format(dateLayout), window.End.Format(dateLayout))
	logrus.Infof("Output:      %s", *outDir)

	startTime := time.Now()

	var table *catalog.Table
	if *fromCH {
		table, err = readClickHouse(*chHost, *chDB, cfg)
	} else {
		table, err = catalog.ReadTableFile(source)
	}
	if err != nil {
		logrus.Fatalf("Cannot read observations: %v", err)
	}

	raw, parseStats, err := obsstats.FromTable(table, insts)
	if err != nil {
		logrus.Fatalf("Bad observation list: %v", err)
	}

	report := obsstats.Analyze(raw, insts, lifetimes, obsstats.Options{
		Window:        window,
		MinSubsetSize: *minSubset,
		SubsetOrder:   order,
	})

	logrus.Info("")
	logrus.Infof("Flares read:            %d (%d unparseable)", parseStats.SuccessfullyParsed, parseStats.FailedRows)
	logrus.Infof("Malformed (sentinel):   %d", report.Clean.Sentinel)
	logrus.Infof("No AIA coordinates:     %d", report.Clean.NoXY)
	logrus.Infof("Zero AIA X or Y:        %d (dropped)", report.Clean.NoCoords)
	logrus.Infof("A-class dropped:        %d", report.Clean.AClass)
	logrus.Infof("Kept:                   %d", report.Clean.Kept)
	logrus.Infof("Fully observed:         %d", len(report.FullyObserved))
	logrus.Infof("In common window:       %d", len(report.Common))
	logrus.Infof("Observed by any:        %.1f%%", report.PercentObserved)
	logrus.Infof("Mean duration:          %v", report.MeanDuration.Round(time.Second))

	logrus.Info("")
	for _, row := range report.Success {
		logrus.Infof("%-7s lifetime %5d/%-5d %5.1f%%  any %5.1f%%  half %5.1f%%  (expected %s)",
			row.Instrument, row.LifetimeObserved, row.LifetimeObservable, row.PercentLifetime,
			row.PercentAnyFrac, row.PercentHalfFrac, row.Expected)
	}

	successPath := filepath.Join(*outDir, obsstats.SuccessFile)
	if err := catalog.WriteTableFile(successPath, obsstats.SuccessRatesTable(report.Success)); err != nil {
		logrus.Fatalf("Write failed: %v", err)
	}
	subsetPath := filepath.Join(*outDir, subsetsFile)
	if err := catalog.WriteTableFile(subsetPath, obsstats.SubsetsTable(report.Subsets, insts)); err != nil {
		logrus.Fatalf("Write failed: %v", err)
	}

	figures := 0
	if !*noPlots {
		if figures, err = writeFigures(*outDir, report); err != nil {
			logrus.Fatalf("Plot failed: %v", err)
		}
	}

	if *overlapA != "" || *overlapB != "" {
		a, errA := parseIntervals(*overlapA)
		b, errB := parseIntervals(*overlapB)
		if errA != nil || errB != nil {
			logrus.Fatalf("Invalid overlap intervals: %v %v", errA, errB)
		}
		logrus.Infof("Overlap: %v", interval.Intersect(a, b))
		if err := plots.IntervalOverlap(filepath.Join(*outDir, "interval_overlap.png"), a, b); err != nil {
			logrus.Fatalf("Plot failed: %v", err)
		}
		figures++
	}

	elapsed := time.Since(startTime)

	logrus.Info("")
	common.Banner("Final Statistics")
	logrus.Infof("Flares:   %d", report.Clean.Kept)
	logrus.Infof("Subsets:  %d", len(report.Subsets))
	logrus.Infof("Tables:   %s, %s", successPath, subsetPath)
	logrus.Infof("Figures:  %d", figures)
	logrus.Infof("Elapsed:  %v", elapsed.Round(time.Millisecond))
	logrus.Info("=========================================================")
}

func readClickHouse(addr, db string, cfg *common.Config) (*catalog.Table, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()

	r, err := store.OpenReader(ctx, store.Options{
		Addr:     addr,
		Database: db,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ObservationTable(ctx)
}

func writeFigures(dir string, r *obsstats.Report) (int, error) {
	n := 0
	if len(r.DurationLetters) > 0 {
		if err := plots.DurationBoxPlot(filepath.Join(dir, "the_average_flare.png"), r.DurationLetters, r.Durations); err != nil {
			return n, err
		}
		n++
	}

	charts := []struct {
		file   string
		title  string
		counts []obsstats.Count
	}{
		{"multi_instr_obs_bar_chart.png", "Flares by number of observing instruments", r.ObservationCounts},
		{"multi_instr_obs_bar_chart_common_time_range.png", "Flares by number of observing instruments (common window)", r.CommonObservationCounts},
	}
	for _, c := range charts {
		if err := plots.BarChart(filepath.Join(dir, c.file), c.title, "Instruments", "Flares", bars(c.counts)); err != nil {
			return n, err
		}
		n++
	}

	labels := []string{obsstats.AllLabel}
	for _, inst := range r.Instruments {
		labels = append(labels, inst.Name)
	}
	for _, label := range labels {
		counts := r.ClassDistribution[label]
		if len(counts) == 0 {
			logrus.Debugf("No flares for %s; skipping class chart", label)
			continue
		}
		file := strings.ToLower(label) + "_flare_classes.png"
		if err := plots.BarChart(filepath.Join(dir, file), label+" flare classes", "GOES class", "Flares", bars(counts)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func bars(counts []obsstats.Count) []plots.Bar {
	out := make([]plots.Bar, len(counts))
	for i, c := range counts {
		out[i] = plots.Bar{Label: c.Label, Value: float64(c.Count)}
	}
	return out
}

func parseWindow(start, end string) (obsstats.Window, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return obsstats.Window{}, err
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return obsstats.Window{}, err
	}
	if !s.Before(e) {
		return obsstats.Window{}, errors.Errorf("start %s is not before end %s", start, end)
	}
	return obsstats.Window{Start: s, End: e}, nil
}

// parseIntervals reads "1:3,5:9" into intervals.
func parseIntervals(s string) ([]interval.Interval[float64], error) {
	var out []interval.Interval[float64]
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, ok := strings.Cut(part, ":")
		if !ok {
			return nil, errors.Errorf("interval %q: want start:end", part)
		}
		a, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "interval %q", part)
		}
		b, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "interval %q", part)
		}
		out = append(out, interval.Interval[float64]{Start: a, End: b})
	}
	return out, nil
}
