// Package model_selection splits feature matrices into train and test sets.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// Split holds the four aligned partitions produced by TrainTestSplit.
type Split struct {
	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain *mat.VecDense
	YTest  *mat.VecDense

	// TrainIndices and TestIndices are row positions in the original X.
	TrainIndices []int
	TestIndices  []int
}

type splitConfig struct {
	seed   uint64
	seeded bool
}

// SplitOption configures TrainTestSplit.
type SplitOption func(*splitConfig)

// WithRandomState makes the row permutation deterministic.
func WithRandomState(seed uint64) SplitOption {
	return func(c *splitConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// roundingSlack absorbs products such as 0.14*100 = 14.000000000000002.
const roundingSlack = 1e-9

// TestSize returns the number of test rows for n samples:
// ceil(testFraction * n). The remainder goes to the training set.
func TestSize(n int, testFraction float64) int {
	return int(math.Ceil(testFraction*float64(n) - roundingSlack))
}

// TrainTestSplit randomly partitions the rows of X and y.
//
// testFraction must lie strictly between 0 and 1. The split fails with a
// DataError when either partition would be empty.
func TrainTestSplit(X mat.Matrix, y mat.Vector, testFraction float64, opts ...SplitOption) (*Split, error) {
	const op = "TrainTestSplit"

	if math.IsNaN(testFraction) || testFraction <= 0 || testFraction >= 1 {
		return nil, errors.NewValidationError("test_fraction", "must be in (0, 1)", testFraction)
	}

	n, p := X.Dims()
	if y.Len() != n {
		return nil, errors.NewDimensionError(op, n, y.Len(), 0)
	}

	nTest := TestSize(n, testFraction)
	nTrain := n - nTest
	if nTest == 0 || nTrain == 0 {
		return nil, errors.NewDataError(op, fmt.Sprintf(
			"test fraction %.2f on %d rows leaves %d train and %d test rows", testFraction, n, nTrain, nTest))
	}

	cfg := &splitConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	var r *rand.Rand
	if cfg.seeded {
		r = rand.New(rand.NewPCG(cfg.seed, cfg.seed))
	} else {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	indices := r.Perm(n)

	s := &Split{
		TestIndices:  indices[:nTest],
		TrainIndices: indices[nTest:],
	}
	s.XTest, s.YTest = takeRows(X, y, s.TestIndices, p)
	s.XTrain, s.YTrain = takeRows(X, y, s.TrainIndices, p)
	return s, nil
}

func takeRows(X mat.Matrix, y mat.Vector, rows []int, p int) (*mat.Dense, *mat.VecDense) {
	xs := mat.NewDense(len(rows), p, nil)
	ys := mat.NewVecDense(len(rows), nil)
	for i, src := range rows {
		for j := 0; j < p; j++ {
			xs.Set(i, j, X.At(src, j))
		}
		ys.SetVec(i, y.AtVec(src))
	}
	return xs, ys
}
