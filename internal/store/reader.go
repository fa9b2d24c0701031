package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// Reader queries stored catalogs.
type Reader struct {
	conn driver.Conn
	db   string
}

// OpenReader connects a Reader and checks the server answers.
func OpenReader(ctx context.Context, opts Options) (*Reader, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, errors.Wrap(err, "clickhouse open")
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "clickhouse ping")
	}
	return &Reader{conn: conn, db: opts.Database}, nil
}

const (
	eventsQuery       = "SELECT flare_start, flare_peak, flare_end, class, aia_loc, aia_xcen, aia_ycen, loc, noaa_ar, source FROM %s.%s ORDER BY flare_peak, flare_start, flare_end, source"
	observationsQuery = "SELECT flare_peak, instrument, observed, flare_triggered, frac_obs, frac_obs_rise, frac_obs_fall FROM %s.%s"
)

// fromDateTime maps the DateTime epoch, which is how a missing time is
// stored, back to the zero time.
func fromDateTime(t time.Time) time.Time {
	if t.IsZero() || t.Unix() == 0 {
		return time.Time{}
	}
	return t.UTC()
}

// Close closes the connection.
func (r *Reader) Close() error {
	return r.conn.Close()
}

// Events returns every stored flare ordered by peak.
func (r *Reader) Events(ctx context.Context) ([]solar.Event, error) {
	rows, err := r.conn.Query(ctx, fmt.Sprintf(eventsQuery, r.db, EventsTable))
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var out []solar.Event
	for rows.Next() {
		var (
			e     solar.Event
			class string
		)
		if err := rows.Scan(&e.Start, &e.Peak, &e.End, &class, &e.AIALoc, &e.AIAXCen, &e.AIAYCen, &e.Loc, &e.NOAAAR, &e.Source); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		e.Start, e.Peak, e.End = fromDateTime(e.Start), fromDateTime(e.Peak), fromDateTime(e.End)
		if e.Class, err = solar.ParseGOESClass(class); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Observations returns every stored observability record.
func (r *Reader) Observations(ctx context.Context) ([]Observation, error) {
	rows, err := r.conn.Query(ctx, fmt.Sprintf(observationsQuery, r.db, ObservationsTable))
	if err != nil {
		return nil, errors.Wrap(err, "query observations")
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var (
			o                   Observation
			observed, triggered int8
		)
		if err := rows.Scan(&o.Peak, &o.Instrument, &observed, &triggered, &o.Frac, &o.FracRise, &o.FracFall); err != nil {
			return nil, errors.Wrap(err, "scan observation")
		}
		o.Peak = fromDateTime(o.Peak)
		o.Observed, o.Triggered = int(observed), int(triggered)
		out = append(out, o)
	}
	return out, rows.Err()
}

// ObservationTable reads events and observations and pivots them into the
// wide observation list layout.
func (r *Reader) ObservationTable(ctx context.Context) (*catalog.Table, error) {
	events, err := r.Events(ctx)
	if err != nil {
		return nil, err
	}
	obs, err := r.Observations(ctx)
	if err != nil {
		return nil, err
	}
	return Pivot(events, obs), nil
}
