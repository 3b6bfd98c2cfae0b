// Package stats computes descriptive statistics over feature matrices.
package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// Correlation is a labelled Pearson correlation matrix.
type Correlation struct {
	Names  []string
	Matrix *mat.SymDense
}

// At returns the coefficient between features i and j.
func (c *Correlation) At(i, j int) float64 {
	return c.Matrix.At(i, j)
}

// Size returns the number of features.
func (c *Correlation) Size() int {
	return len(c.Names)
}

// Rows renders the matrix as nested slices, row by row. NaN entries are kept.
func (c *Correlation) Rows() [][]float64 {
	n := c.Size()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = c.Matrix.At(i, j)
		}
	}
	return out
}

// CorrelationMatrix computes pairwise Pearson correlation between the columns
// of X. Columns with zero variance correlate as NaN with everything, including
// themselves.
func CorrelationMatrix(X mat.Matrix, names []string) (*Correlation, error) {
	const op = "CorrelationMatrix"

	r, c := X.Dims()
	if c == 0 {
		return nil, errors.NewDataError(op, "no feature columns")
	}
	if r < 2 {
		return nil, errors.NewDataError(op, "at least 2 rows are required")
	}
	if len(names) != c {
		return nil, errors.NewDimensionError(op, c, len(names), 1)
	}

	corr := mat.NewSymDense(c, nil)
	stat.CorrelationMatrix(corr, X, nil)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		if stat.Variance(col, nil) == 0 {
			for k := 0; k < c; k++ {
				corr.SetSym(j, k, math.NaN())
			}
		}
	}

	out := make([]string, c)
	copy(out, names)
	return &Correlation{Names: out, Matrix: corr}, nil
}
