package store

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/instrument"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

const observedSuffix = "_OBSERVED"

// ObservationHeader returns the wide observation list header for insts.
func ObservationHeader(insts []string) []string {
	header := []string{"INDEX"}
	for _, h := range catalog.UnifiedHeader {
		header = append(header, strings.ToUpper(h))
	}
	for _, inst := range insts {
		for _, c := range instrument.Columns(inst) {
			header = append(header, strings.ToUpper(c))
		}
	}
	return header
}

// Pivot joins observations onto events by peak time, one row per event and
// five columns per instrument. Instruments are ordered by name; cells for a
// flare an instrument has no record for are left empty.
func Pivot(events []solar.Event, obs []Observation) *catalog.Table {
	byPeak := make(map[int64]map[string]instrument.Record)
	seen := make(map[string]bool)
	var insts []string
	for _, o := range obs {
		key := o.Peak.Unix()
		if byPeak[key] == nil {
			byPeak[key] = make(map[string]instrument.Record)
		}
		byPeak[key][o.Instrument] = o.Record
		if !seen[o.Instrument] {
			seen[o.Instrument] = true
			insts = append(insts, o.Instrument)
		}
	}
	sort.Strings(insts)

	t := catalog.NewTable(ObservationHeader(insts)...)
	for i, e := range events {
		row := append([]string{strconv.Itoa(i)}, catalog.EventRecord(e)...)
		recs := byPeak[e.Peak.Unix()]
		for _, inst := range insts {
			if rec, ok := recs[inst]; ok {
				row = append(row, rec.Values()...)
			} else {
				row = append(row, make([]string, len(instrument.Columns(inst)))...)
			}
		}
		t.Append(row)
	}
	return t
}

// Unpivot reads a wide observation list: events from the flare columns and
// one Observation per instrument per row. Rows whose peak cannot be parsed
// are skipped and counted.
//
// Phase flags such as XRT_RISE_OBSERVED belong to the XRT instrument and
// fill its rise/fall fraction when no <INST>_FRAC_OBS_RISE/_FALL column is
// present.
func Unpivot(t *catalog.Table) ([]solar.Event, []Observation, catalog.ParseStats, error) {
	events, stats, err := catalog.ParseEvents(t, catalog.Observed)
	if err != nil {
		return nil, nil, stats, err
	}

	insts := observedInstruments(t.Header)
	if len(insts) == 0 {
		logrus.Warn("store: observation list has no <INST>_OBSERVED columns")
	}

	var obs []Observation
	for _, row := range t.Rows {
		peak, err := solar.ParseMixedTime(t.Get(row, catalog.Observed.Peak))
		if err != nil {
			continue
		}
		for _, inst := range insts {
			cols := instrument.Columns(inst)
			obs = append(obs, Observation{
				Peak: peak,
				Record: instrument.Record{
					Instrument: inst,
					Observed:   instrument.ParseFlag(t.Get(row, cols[0])),
					Triggered:  instrument.ParseFlag(t.Get(row, cols[1])),
					Frac:       instrument.ParseFraction(t.Get(row, cols[2])),
					FracRise:   phaseValue(t, row, cols[3], inst, risePhase),
					FracFall:   phaseValue(t, row, cols[4], inst, fallPhase),
				},
			})
		}
	}
	return events, obs, stats, nil
}

const (
	risePhase = "_RISE"
	fallPhase = "_FALL"
)

// observedInstruments returns the lower-case instrument prefixes of every
// <INST>_OBSERVED column, leaving out <INST>_RISE/_FALL_OBSERVED phase flags
// of an instrument that has its own <INST>_OBSERVED column.
func observedInstruments(header []string) []string {
	var prefixes []string
	have := make(map[string]bool)
	for _, h := range header {
		name := strings.ToUpper(strings.TrimSpace(h))
		if len(name) > len(observedSuffix) && strings.HasSuffix(name, observedSuffix) {
			p := strings.TrimSuffix(name, observedSuffix)
			if !have[p] {
				have[p] = true
				prefixes = append(prefixes, p)
			}
		}
	}

	var insts []string
	for _, p := range prefixes {
		if base, ok := phaseBase(p); ok && have[base] {
			continue
		}
		insts = append(insts, strings.ToLower(p))
	}
	return insts
}

func phaseBase(prefix string) (string, bool) {
	for _, phase := range []string{risePhase, fallPhase} {
		if base := strings.TrimSuffix(prefix, phase); base != prefix && base != "" {
			return base, true
		}
	}
	return "", false
}

// phaseValue reads a rise/fall fraction column, falling back to the
// instrument's <INST><phase>_OBSERVED flag.
func phaseValue(t *catalog.Table, row []string, col, inst, phase string) float64 {
	if t.Col(col) >= 0 {
		return instrument.ParseFraction(t.Get(row, col))
	}
	flag := strings.ToUpper(inst) + phase + observedSuffix
	if t.Col(flag) >= 0 {
		return float64(instrument.ParseFlag(t.Get(row, flag)))
	}
	return 0
}
