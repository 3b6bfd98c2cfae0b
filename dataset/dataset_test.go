package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Dataset {
	t.Helper()
	d, err := New(
		NewNumericColumn("x", KindFloat, []float64{1, math.NaN(), 3}),
		NewCategoricalColumn("c", []string{"a", "", "b"}, []bool{true, false, true}),
		NewNumericColumn("y", KindInteger, []float64{0, 1, 0}),
	)
	require.NoError(t, err)
	return d
}

func TestNewRejectsInvalidColumns(t *testing.T) {
	_, err := New(
		NewNumericColumn("x", KindFloat, []float64{1, 2}),
		NewNumericColumn("x", KindFloat, []float64{1, 2}),
	)
	assert.Error(t, err)

	_, err = New(
		NewNumericColumn("x", KindFloat, []float64{1, 2}),
		NewNumericColumn("y", KindFloat, []float64{1}),
	)
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	d := sample(t)
	assert.Equal(t, []ColumnInfo{
		{Name: "x", Kind: KindFloat, Nulls: 1},
		{Name: "c", Kind: KindCategorical, Nulls: 1},
		{Name: "y", Kind: KindInteger, Nulls: 0},
	}, d.Summary())
}

func TestDropColumns(t *testing.T) {
	d := sample(t)

	out, err := d.DropColumns("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out.Names())
	assert.Equal(t, 3, out.NRows())
	assert.Equal(t, 3, d.NCols(), "source dataset must not change")

	_, err = d.DropColumns("missing")
	assert.Error(t, err)
}

func TestFilterRows(t *testing.T) {
	d := sample(t)

	out, err := d.FilterRows([]bool{true, false, true})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NRows())

	c, _ := out.Column("c")
	label, ok := c.Label(1)
	assert.Equal(t, "b", label)
	assert.True(t, ok)

	_, err = d.FilterRows([]bool{true})
	assert.Error(t, err)
}

func TestHead(t *testing.T) {
	d := sample(t)
	assert.Equal(t, [][]string{
		{"1", "a", "0"},
		{"NaN", "NaN", "1"},
	}, d.Head(2))
	assert.Len(t, d.Head(10), 3)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "int64", KindInteger.String())
	assert.Equal(t, "float64", KindFloat.String())
	assert.Equal(t, "object", KindCategorical.String())
	assert.True(t, KindFloat.IsNumeric())
	assert.False(t, KindCategorical.IsNumeric())
}
