package dataset

import (
	"math"
	"strconv"
)

// Kind is the type tag of a column, computed once when the data is loaded.
type Kind int

const (
	// KindInteger holds whole numbers. Missing values are NaN.
	KindInteger Kind = iota
	// KindFloat holds real numbers. Missing values are NaN.
	KindFloat
	// KindCategorical holds strings with a validity mask.
	KindCategorical
)

// IsNumeric reports whether the column can be used as a numeric feature or target.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "int64"
	case KindFloat:
		return "float64"
	case KindCategorical:
		return "object"
	default:
		return "unknown"
	}
}

// Column is an immutable named column of a Dataset.
type Column struct {
	name    string
	kind    Kind
	numbers []float64
	labels  []string
	valid   []bool
}

// NewNumericColumn builds a numeric column. NaN marks a missing value.
// kind must be KindInteger or KindFloat.
func NewNumericColumn(name string, kind Kind, values []float64) *Column {
	if !kind.IsNumeric() {
		kind = KindFloat
	}
	numbers := make([]float64, len(values))
	copy(numbers, values)
	return &Column{name: name, kind: kind, numbers: numbers}
}

// NewCategoricalColumn builds a categorical column. valid[i] == false marks
// a missing value; a nil valid slice means nothing is missing.
func NewCategoricalColumn(name string, values []string, valid []bool) *Column {
	labels := make([]string, len(values))
	copy(labels, values)
	mask := make([]bool, len(values))
	for i := range mask {
		mask[i] = valid == nil || valid[i]
	}
	return &Column{name: name, kind: KindCategorical, labels: labels, valid: mask}
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column type tag.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.kind == KindCategorical {
		return len(c.labels)
	}
	return len(c.numbers)
}

// IsMissing reports whether row i holds a missing value.
func (c *Column) IsMissing(i int) bool {
	if c.kind == KindCategorical {
		return !c.valid[i]
	}
	return math.IsNaN(c.numbers[i])
}

// NullCount returns the number of missing values.
func (c *Column) NullCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Float returns the numeric value of row i. It panics on categorical columns.
func (c *Column) Float(i int) float64 {
	if c.kind == KindCategorical {
		panic("dataset: Float called on categorical column " + c.name)
	}
	return c.numbers[i]
}

// Label returns the string value of row i of a categorical column.
func (c *Column) Label(i int) (string, bool) {
	if c.kind != KindCategorical {
		return "", false
	}
	return c.labels[i], c.valid[i]
}

// Floats returns a copy of the numeric values.
func (c *Column) Floats() []float64 {
	out := make([]float64, len(c.numbers))
	copy(out, c.numbers)
	return out
}

// Format renders row i the way the preview table shows it.
func (c *Column) Format(i int) string {
	if c.IsMissing(i) {
		return "NaN"
	}
	switch c.kind {
	case KindCategorical:
		return c.labels[i]
	case KindInteger:
		return strconv.FormatInt(int64(c.numbers[i]), 10)
	default:
		return strconv.FormatFloat(c.numbers[i], 'g', -1, 64)
	}
}

func (c *Column) take(rows []int) *Column {
	out := &Column{name: c.name, kind: c.kind}
	if c.kind == KindCategorical {
		out.labels = make([]string, len(rows))
		out.valid = make([]bool, len(rows))
		for j, i := range rows {
			out.labels[j] = c.labels[i]
			out.valid[j] = c.valid[i]
		}
		return out
	}
	out.numbers = make([]float64, len(rows))
	for j, i := range rows {
		out.numbers[j] = c.numbers[i]
	}
	return out
}
