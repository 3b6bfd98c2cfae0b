package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepml/pkg/errors"
)

func silenceWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })
	return &got
}

// TestLogisticRegression_FitPredict_Binary tests binary classification
func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	silenceWarnings(t)

	// Class 0: points around (1, 1)
	// Class 1: points around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(1000), WithLRTol(1e-4))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	predictions, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := 0; i < 6; i++ {
		if predictions.At(i, 0) != y.AtVec(i) {
			t.Errorf("Sample %d: expected %v, got %v", i, y.AtVec(i), predictions.At(i, 0))
		}
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.0, 1.0, // Should be class 0
		3.0, 3.0, // Should be class 1
	})
	testPreds, err := lr.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict on test data: %v", err)
	}
	if testPreds.At(0, 0) != 0 {
		t.Errorf("Test point (1,1) should be class 0, got %v", testPreds.At(0, 0))
	}
	if testPreds.At(1, 0) != 1 {
		t.Errorf("Test point (3,3) should be class 1, got %v", testPreds.At(1, 0))
	}
}

// TestLogisticRegression_NonIntegerLabels keeps arbitrary float labels
func TestLogisticRegression_NonIntegerLabels(t *testing.T) {
	silenceWarnings(t)

	X := mat.NewDense(4, 1, []float64{-2, -1, 1, 2})
	y := mat.NewVecDense(4, []float64{2.5, 2.5, 7, 7})

	lr := NewLogisticRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	classes := lr.Classes()
	if len(classes) != 2 || classes[0] != 2.5 || classes[1] != 7 {
		t.Fatalf("unexpected classes %v", classes)
	}

	pred, _ := lr.Predict(mat.NewDense(2, 1, []float64{-3, 3}))
	if pred.At(0, 0) != 2.5 || pred.At(1, 0) != 7 {
		t.Errorf("unexpected predictions %v", mat.Formatted(pred))
	}
}

// TestLogisticRegression_PredictProba tests probability predictions
func TestLogisticRegression_PredictProba(t *testing.T) {
	silenceWarnings(t)

	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(500))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}

	rows, cols := probas.Dims()
	if rows != 4 || cols != 2 {
		t.Errorf("Expected probas shape (4, 2), got (%d, %d)", rows, cols)
	}

	predictions, _ := lr.Predict(X)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			prob := probas.At(i, j)
			if prob < 0 || prob > 1 {
				t.Errorf("Invalid probability at (%d, %d): %v", i, j, prob)
			}
			sum += prob
		}
		if math.Abs(sum-1.0) > 1e-6 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}

		pred := int(predictions.At(i, 0))
		if probas.At(i, pred) < probas.At(i, 1-pred) {
			t.Errorf("Sample %d: predicted class %d has lower probability", i, pred)
		}
	}
}

// TestLogisticRegression_Score tests accuracy calculation
func TestLogisticRegression_Score(t *testing.T) {
	silenceWarnings(t)

	X := mat.NewDense(8, 3, []float64{
		0, 0, 0,
		0, 0, 1,
		0, 1, 0,
		0, 1, 1,
		1, 0, 0,
		1, 0, 1,
		1, 1, 0,
		1, 1, 1,
	})
	// class 1 if sum of features > 1.5
	y := mat.NewVecDense(8, []float64{0, 0, 0, 1, 0, 1, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(1000), WithLRC(10.0))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score < 0.75 {
		t.Errorf("Score too low: %v", score)
	}

	if _, err := lr.Score(X, mat.NewVecDense(2, nil)); err == nil {
		t.Error("Score with mismatched y should fail")
	}
}

// TestLogisticRegression_Regularization tests L2 regularization
func TestLogisticRegression_Regularization(t *testing.T) {
	silenceWarnings(t)

	X := mat.NewDense(10, 5, []float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
		0, 0, 0, 0, 1,
		1, 1, 0, 0, 0,
		0, 1, 1, 0, 0,
		0, 0, 1, 1, 0,
		0, 0, 0, 1, 1,
		1, 0, 0, 0, 1,
	})
	y := mat.NewVecDense(10, []float64{0, 0, 0, 1, 1, 0, 0, 1, 1, 1})

	lrStrong := NewLogisticRegression(WithLRC(0.01), WithLRMaxIter(1000))
	if err := lrStrong.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	lrWeak := NewLogisticRegression(WithLRC(100.0), WithLRMaxIter(1000))
	if err := lrWeak.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	strongNorm := mat.Norm(lrStrong.Coef(), 2)
	weakNorm := mat.Norm(lrWeak.Coef(), 2)
	if strongNorm >= weakNorm {
		t.Errorf("Strong regularization should produce smaller weights: strong=%v, weak=%v",
			strongNorm, weakNorm)
	}
}

func threeClusters() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(9, 2, []float64{
		0, 0,
		0.5, 0.2,
		0.2, 0.5,
		5, 0,
		5.5, 0.3,
		4.8, 0.4,
		0, 5,
		0.3, 5.5,
		0.4, 4.8,
	})
	y := mat.NewVecDense(9, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})
	return X, y
}

// TestLogisticRegression_Multiclass covers both multi-class strategies
func TestLogisticRegression_Multiclass(t *testing.T) {
	silenceWarnings(t)

	for _, strategy := range []string{MultiClassAuto, MultiClassMultinomial, MultiClassOVR} {
		t.Run(strategy, func(t *testing.T) {
			X, y := threeClusters()

			lr := NewLogisticRegression(WithLRMultiClass(strategy))
			if err := lr.Fit(X, y); err != nil {
				t.Fatalf("Failed to fit model: %v", err)
			}

			rows, cols := lr.Coef().Dims()
			if rows != 3 || cols != 2 {
				t.Errorf("coef shape = (%d, %d), want (3, 2)", rows, cols)
			}

			score, err := lr.Score(X, y)
			if err != nil {
				t.Fatal(err)
			}
			if score != 1.0 {
				t.Errorf("expected perfect training accuracy, got %v", score)
			}

			probas, err := lr.PredictProba(X)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 9; i++ {
				row := mat.Row(nil, i, probas)
				sum := row[0] + row[1] + row[2]
				if math.Abs(sum-1) > 1e-9 {
					t.Errorf("row %d sums to %v", i, sum)
				}
			}
		})
	}
}

// TestLogisticRegression_FitErrors checks inputs that cannot be trained on
func TestLogisticRegression_FitErrors(t *testing.T) {
	tests := []struct {
		name string
		X    mat.Matrix
		y    mat.Matrix
	}{
		{
			name: "single class",
			X:    mat.NewDense(3, 1, []float64{1, 2, 3}),
			y:    mat.NewVecDense(3, []float64{1, 1, 1}),
		},
		{
			name: "length mismatch",
			X:    mat.NewDense(3, 1, []float64{1, 2, 3}),
			y:    mat.NewVecDense(2, []float64{0, 1}),
		},
		{
			name: "empty",
			X:    &mat.Dense{},
			y:    &mat.VecDense{},
		},
		{
			name: "y not a column",
			X:    mat.NewDense(2, 1, []float64{1, 2}),
			y:    mat.NewDense(2, 2, []float64{0, 1, 1, 0}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewLogisticRegression().Fit(tt.X, tt.y)
			if err == nil {
				t.Fatal("expected error")
			}
			var fitErr *errors.FitError
			if !errors.As(err, &fitErr) {
				t.Fatalf("expected FitError, got %T: %v", err, err)
			}
			if errors.Classify(err) != errors.CategoryData {
				t.Errorf("unexpected category %v", errors.Classify(err))
			}
		})
	}
}

func TestLogisticRegression_NotFitted(t *testing.T) {
	lr := NewLogisticRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, []float64{0}))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}
}

func TestLogisticRegression_FeatureMismatch(t *testing.T) {
	silenceWarnings(t)

	X, y := threeClusters()
	lr := NewLogisticRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if _, err := lr.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("Predict with 3 features should fail after fitting on 2")
	}
}

func TestLogisticRegression_ConvergenceWarning(t *testing.T) {
	warnings := silenceWarnings(t)

	X, y := threeClusters()
	lr := NewLogisticRegression(WithLRMaxIter(2))
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	if len(*warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(*warnings))
	}
	var cw *errors.ConvergenceWarning
	if !errors.As((*warnings)[0], &cw) {
		t.Fatalf("expected ConvergenceWarning, got %T", (*warnings)[0])
	}
	if lr.NIter()[0] != 2 {
		t.Errorf("NIter = %v, want [2]", lr.NIter())
	}
}

func TestLogisticRegression_Params(t *testing.T) {
	lr := NewLogisticRegression()

	if err := lr.SetParams(map[string]interface{}{"C": 0.5, "max_iter": 50}); err != nil {
		t.Fatalf("SetParams failed: %v", err)
	}
	params := lr.GetParams()
	if params["C"] != 0.5 || params["max_iter"] != 50 {
		t.Errorf("unexpected params %v", params)
	}

	tests := []map[string]interface{}{
		{"C": -1.0},
		{"C": "big"},
		{"solver": "lbfgs"},
		{"multi_class": "crammer"},
	}
	for _, p := range tests {
		if err := NewLogisticRegression().SetParams(p); err == nil {
			t.Errorf("SetParams(%v) should fail", p)
		}
	}
}
