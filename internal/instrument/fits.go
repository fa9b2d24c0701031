package instrument

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
)

// findTable returns the first table HDU holding a column named col
// (case-insensitive) along with the column's exact name.
func findTable(f *fitsio.File, col string) (*fitsio.Table, string) {
	for _, hdu := range f.HDUs() {
		tbl, ok := hdu.(*fitsio.Table)
		if !ok {
			continue
		}
		for _, c := range tbl.Cols() {
			if strings.EqualFold(c.Name, col) {
				return tbl, c.Name
			}
		}
	}
	return nil, ""
}

// findTableNamed returns the table HDU whose EXTNAME is name.
func findTableNamed(f *fitsio.File, name string) *fitsio.Table {
	for _, hdu := range f.HDUs() {
		if !strings.EqualFold(hdu.Name(), name) {
			continue
		}
		if tbl, ok := hdu.(*fitsio.Table); ok {
			return tbl
		}
	}
	return nil
}

// readColumn returns every row's value of col.
func readColumn(f *fitsio.File, col string) ([]interface{}, error) {
	tbl, name := findTable(f, col)
	if tbl == nil {
		return nil, errors.Errorf("fits: no table with column %s", col)
	}
	return readTableColumn(tbl, name)
}

func readTableColumn(tbl *fitsio.Table, name string) ([]interface{}, error) {
	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, errors.Wrapf(err, "fits: read %s", name)
	}
	defer rows.Close()

	out := make([]interface{}, 0, tbl.NumRows())
	for rows.Next() {
		row := map[string]interface{}{name: nil}
		if err := rows.Scan(&row); err != nil {
			return nil, errors.Wrapf(err, "fits: scan %s", name)
		}
		out = append(out, row[name])
	}
	return out, rows.Err()
}

// headerFloat looks up a numeric keyword in any HDU header.
func headerFloat(f *fitsio.File, key string) (float64, bool) {
	for _, hdu := range f.HDUs() {
		card := hdu.Header().Get(key)
		if card == nil {
			continue
		}
		if v, ok := scalarFloat(reflect.ValueOf(card.Value)); ok {
			return v, true
		}
	}
	return 0, false
}

// toFloats flattens a scalar, array or slice cell into float64 values.
func toFloats(v interface{}) []float64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Slice, reflect.Array:
		out := make([]float64, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if f, ok := scalarFloat(rv.Index(i)); ok {
				out = append(out, f)
			}
		}
		return out
	}
	if f, ok := scalarFloat(rv); ok {
		return []float64{f}
	}
	return nil
}

func scalarFloat(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		return f, err == nil
	case reflect.Interface, reflect.Ptr:
		if rv.IsNil() {
			return 0, false
		}
		return scalarFloat(rv.Elem())
	}
	return 0, false
}

// toStrings flattens a string cell. A single string holding several
// space-separated names is split.
func toStrings(v interface{}) []string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return strings.Fields(rv.String())
	case reflect.Slice, reflect.Array:
		out := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e := rv.Index(i)
			if e.Kind() == reflect.Interface {
				e = e.Elem()
			}
			if e.Kind() == reflect.String {
				out = append(out, strings.TrimSpace(e.String()))
			}
		}
		return out
	}
	return nil
}
