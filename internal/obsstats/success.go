package obsstats

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
)

// SuccessFile is the file name of the success-rate table.
const SuccessFile = "success_rate_table.csv"

// SuccessHeader is the success-rate table layout.
var SuccessHeader = []string{
	"instrument",
	"expected_success_rates",
	"lifetime_observable_flares",
	"lifetime_observed_flares",
	"%_observed_9yr",
	"%_observed_any_frac_11mo",
	"%_observed_half_frac_11mo",
}

// SuccessRow summarises how often one instrument caught a flare.
type SuccessRow struct {
	Instrument         string
	Expected           string
	LifetimeObservable int
	LifetimeObserved   int
	PercentLifetime    float64
	PercentAnyFrac     float64 // common window, any coverage
	PercentHalfFrac    float64 // common window, mean phase coverage above one half
}

// SuccessTable computes a row per instrument. all is the cleaned list;
// common is the part of it inside the common window.
func SuccessTable(all, common []Flare, insts []Instrument, lifetimes []Lifetime) []SuccessRow {
	rows := make([]SuccessRow, 0, len(insts))
	for _, inst := range insts {
		row := SuccessRow{Instrument: inst.Name, Expected: inst.ExpectedSuccess}

		if span, ok := Span(lifetimes, inst.Name); ok {
			inLife := span.Filter(all)
			row.LifetimeObservable = len(inLife)
			row.LifetimeObserved = len(ObservedBy(inLife, inst.Short))
			row.PercentLifetime = percent(row.LifetimeObserved, row.LifetimeObservable)
		} else {
			logrus.Warnf("obsstats: no lifetime range for %s", inst.Name)
		}

		anyFrac, halfFrac := 0, 0
		for _, f := range common {
			if f.ObservedBy(inst.Short) {
				anyFrac++
			}
			if inst.Fractions {
				if f.MeanPhaseFraction(inst.Short) > 0.5 {
					halfFrac++
				}
			} else if f.ObservedBy(inst.Short) {
				halfFrac++
			}
		}
		row.PercentAnyFrac = percent(anyFrac, len(common))
		row.PercentHalfFrac = percent(halfFrac, len(common))
		rows = append(rows, row)
	}
	return rows
}

// SuccessRatesTable renders rows in SuccessHeader layout.
func SuccessRatesTable(rows []SuccessRow) *catalog.Table {
	t := catalog.NewTable(SuccessHeader...)
	for _, r := range rows {
		t.Append([]string{
			r.Instrument,
			r.Expected,
			strconv.Itoa(r.LifetimeObservable),
			strconv.Itoa(r.LifetimeObserved),
			formatPercent(r.PercentLifetime),
			formatPercent(r.PercentAnyFrac),
			formatPercent(r.PercentHalfFrac),
		})
	}
	return t
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
