package store

import (
	"context"
	"fmt"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// DefaultBatchSize is the number of rows sent per INSERT.
const DefaultBatchSize = 10000

// Options selects the ClickHouse server and database.
type Options struct {
	Addr      string
	Database  string
	User      string
	Password  string
	BatchSize int
}

// Writer inserts rows over the native protocol.
type Writer struct {
	conn      *ch.Client
	db        string
	batchSize int
}

// Dial connects a Writer.
func Dial(ctx context.Context, opts Options) (*Writer, error) {
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     opts.Addr,
		Database:    "default",
		User:        opts.User,
		Password:    opts.Password,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "clickhouse dial %s", opts.Addr)
	}
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Writer{conn: conn, db: opts.Database, batchSize: size}, nil
}

// Close closes the connection.
func (w *Writer) Close() error {
	return w.conn.Close()
}

// CreateTables applies DDL.
func (w *Writer) CreateTables(ctx context.Context) error {
	for _, stmt := range DDL(w.db) {
		if err := w.conn.Do(ctx, ch.Query{Body: stmt}); err != nil {
			return errors.Wrap(err, "apply schema")
		}
	}
	return nil
}

// Truncate empties table.
func (w *Writer) Truncate(ctx context.Context, table string) error {
	fqn := w.fqn(table)
	logrus.Infof("Truncating table %s...", fqn)
	if err := w.conn.Do(ctx, ch.Query{Body: fmt.Sprintf("TRUNCATE TABLE %s", fqn)}); err != nil {
		return errors.Wrapf(err, "truncate %s", fqn)
	}
	return nil
}

// InsertEvents writes events in batches and returns the number inserted.
func (w *Writer) InsertEvents(ctx context.Context, events []solar.Event) (int, error) {
	batch := NewEventBatch()
	query := fmt.Sprintf("INSERT INTO %s (flare_start, flare_peak, flare_end, class, class_rank, aia_loc, aia_xcen, aia_ycen, loc, noaa_ar, source) VALUES",
		w.fqn(EventsTable))

	total := 0
	for _, e := range events {
		batch.AddEvent(e)
		if batch.Len() >= w.batchSize {
			if err := w.flush(ctx, query, batch); err != nil {
				return total, err
			}
			total += batch.Len()
			batch.Reset()
		}
	}
	if batch.Len() > 0 {
		if err := w.flush(ctx, query, batch); err != nil {
			return total, err
		}
		total += batch.Len()
	}
	return total, nil
}

// InsertObservations writes observability records in batches.
func (w *Writer) InsertObservations(ctx context.Context, obs []Observation) (int, error) {
	batch := NewObservationBatch()
	query := fmt.Sprintf("INSERT INTO %s (flare_peak, instrument, observed, flare_triggered, frac_obs, frac_obs_rise, frac_obs_fall) VALUES",
		w.fqn(ObservationsTable))

	total := 0
	for _, o := range obs {
		batch.AddObservation(o)
		if batch.Len() >= w.batchSize {
			if err := w.flush(ctx, query, batch); err != nil {
				return total, err
			}
			total += batch.Len()
			batch.Reset()
		}
	}
	if batch.Len() > 0 {
		if err := w.flush(ctx, query, batch); err != nil {
			return total, err
		}
		total += batch.Len()
	}
	return total, nil
}

type columnBatch interface {
	Len() int
	Input() proto.Input
}

func (w *Writer) flush(ctx context.Context, query string, batch columnBatch) error {
	if err := w.conn.Do(ctx, ch.Query{Body: query, Input: batch.Input()}); err != nil {
		return errors.Wrap(err, "insert")
	}
	logrus.Debugf("store: flushed %d rows", batch.Len())
	return nil
}

func (w *Writer) fqn(table string) string {
	return w.db + "." + table
}
