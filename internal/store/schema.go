// Package store loads flare catalogs and observability records into
// ClickHouse and reads them back for the statistics tool.
package store

import "fmt"

// Table names inside the flare database. Both tables keep every inserted
// row: flares sharing a peak are distinct catalog rows, so reloading a list
// needs flare-ingest -truncate first.
const (
	EventsTable       = "events"
	ObservationsTable = "observations"
)

const eventsDDL = `CREATE TABLE IF NOT EXISTS %s.%s (
    flare_start  DateTime,
    flare_peak   DateTime,
    flare_end    DateTime,
    class        String,
    class_rank   Float64,
    aia_loc      String,
    aia_xcen     Float64,
    aia_ycen     Float64,
    loc          String,
    noaa_ar      Int32,
    source       String
) ENGINE = MergeTree
ORDER BY (flare_peak, flare_start, flare_end, source)`

const observationsDDL = `CREATE TABLE IF NOT EXISTS %s.%s (
    flare_peak       DateTime,
    instrument       String,
    observed         Int8,
    flare_triggered  Int8,
    frac_obs         Float64,
    frac_obs_rise    Float64,
    frac_obs_fall    Float64
) ENGINE = MergeTree
ORDER BY (instrument, flare_peak)`

// DDL returns the CREATE statements for database db.
func DDL(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(eventsDDL, db, EventsTable),
		fmt.Sprintf(observationsDDL, db, ObservationsTable),
	}
}
