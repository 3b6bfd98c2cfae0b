// Package dataset holds the uploaded table in memory as typed columns.
//
// A Dataset is never modified after construction; every transformation
// (dropping rows, imputing, encoding) builds a new Dataset.
package dataset

import (
	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// Dataset is an ordered set of equally long, uniquely named columns.
type Dataset struct {
	columns []*Column
	index   map[string]int
	nRows   int
}

// ColumnInfo summarises one column for display.
type ColumnInfo struct {
	Name  string
	Kind  Kind
	Nulls int
}

// New assembles a Dataset. Columns must have unique, non-empty names and the
// same length.
func New(columns ...*Column) (*Dataset, error) {
	d := &Dataset{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c.Name() == "" {
			return nil, errors.NewValidationError("column", "name must not be empty", i)
		}
		if _, dup := d.index[c.Name()]; dup {
			return nil, errors.NewValidationError("column", "duplicate column name", c.Name())
		}
		if i == 0 {
			d.nRows = c.Len()
		} else if c.Len() != d.nRows {
			return nil, errors.NewDimensionError("dataset.New", d.nRows, c.Len(), 0)
		}
		d.index[c.Name()] = i
	}
	return d, nil
}

// NRows returns the number of rows.
func (d *Dataset) NRows() int { return d.nRows }

// NCols returns the number of columns.
func (d *Dataset) NCols() int { return len(d.columns) }

// Shape returns (rows, columns).
func (d *Dataset) Shape() (int, int) { return d.nRows, len(d.columns) }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name()
	}
	return names
}

// Columns returns the columns in order. The slice is a copy; the columns are shared.
func (d *Dataset) Columns() []*Column {
	out := make([]*Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Has reports whether the dataset has a column called name.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Kind returns the type tag of the named column.
func (d *Dataset) Kind(name string) (Kind, error) {
	c, ok := d.Column(name)
	if !ok {
		return 0, errors.NewValidationError("column", "no such column", name)
	}
	return c.Kind(), nil
}

// Summary describes every column.
func (d *Dataset) Summary() []ColumnInfo {
	out := make([]ColumnInfo, len(d.columns))
	for i, c := range d.columns {
		out[i] = ColumnInfo{Name: c.Name(), Kind: c.Kind(), Nulls: c.NullCount()}
	}
	return out
}

// DropColumns returns a dataset without the named columns.
func (d *Dataset) DropColumns(names ...string) (*Dataset, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if !d.Has(n) {
			return nil, errors.NewValidationError("column", "no such column", n)
		}
		drop[n] = true
	}
	kept := make([]*Column, 0, len(d.columns))
	for _, c := range d.columns {
		if !drop[c.Name()] {
			kept = append(kept, c)
		}
	}
	out, err := New(kept...)
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		out.nRows = d.nRows
	}
	return out, nil
}

// FilterRows keeps the rows for which keep[i] is true, in order.
func (d *Dataset) FilterRows(keep []bool) (*Dataset, error) {
	if len(keep) != d.nRows {
		return nil, errors.NewDimensionError("dataset.FilterRows", d.nRows, len(keep), 0)
	}
	rows := make([]int, 0, d.nRows)
	for i, k := range keep {
		if k {
			rows = append(rows, i)
		}
	}
	cols := make([]*Column, len(d.columns))
	for j, c := range d.columns {
		cols[j] = c.take(rows)
	}
	return &Dataset{columns: cols, index: d.index, nRows: len(rows)}, nil
}

// Head renders the first n rows as strings for previews.
func (d *Dataset) Head(n int) [][]string {
	if n > d.nRows {
		n = d.nRows
	}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]string, len(d.columns))
		for j, c := range d.columns {
			rows[i][j] = c.Format(i)
		}
	}
	return rows
}
