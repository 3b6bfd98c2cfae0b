package workflow

import (
	"fmt"
	"io"

	"github.com/YuminosukeSato/stepml/dataset"
	"github.com/YuminosukeSato/stepml/linear_model"
	"github.com/YuminosukeSato/stepml/metrics"
	"github.com/YuminosukeSato/stepml/model_selection"
	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/preprocessing"
	"github.com/YuminosukeSato/stepml/stats"
)

// Test percent bounds offered to the operator.
const (
	MinTestPercent     = 10
	MaxTestPercent     = 50
	DefaultTestPercent = 30
)

// ModelOptions configures the logistic regression pipeline.
type ModelOptions struct {
	MaxIter    int
	C          float64
	Tol        float64
	MultiClass string
	// Scaler is "standard", "minmax" or "none".
	Scaler string
}

// Options configures a workflow.
type Options struct {
	// RandomState seeds the train/test split; negative means unseeded.
	RandomState int64
	Model       ModelOptions
}

// DefaultOptions returns unseeded options with scikit-learn's defaults.
func DefaultOptions() Options {
	return Options{
		RandomState: -1,
		Model: ModelOptions{
			MaxIter:    1000,
			C:          1.0,
			Tol:        1e-4,
			MultiClass: linear_model.MultiClassAuto,
			Scaler:     "standard",
		},
	}
}

// Context is an immutable snapshot of the workflow. Every transition returns
// a new Context; on error the receiver is returned unchanged, except when the
// error halts the workflow.
type Context struct {
	opts  Options
	stage Stage
	err   error

	source   string
	data     *dataset.Dataset
	idColumn string
	target   string

	nulls     *preprocessing.NullReport
	remaining *preprocessing.NullReport
	strategy  preprocessing.NullStrategy
	warnings  []error

	encoded     *dataset.Dataset
	features    *preprocessing.FeatureSet
	correlation *stats.Correlation

	testPercent int
	split       *model_selection.Split
	model       *linear_model.Pipeline

	accuracy  float64
	confusion *metrics.ConfusionMatrix
}

// New returns an empty workflow.
func New(opts Options) *Context {
	return &Context{opts: opts, stage: StageEmpty}
}

func (c *Context) clone() *Context {
	next := *c
	next.warnings = append([]error(nil), c.warnings...)
	return &next
}

// transition runs fn on a copy of c when c is in one of the allowed stages.
func (c *Context) transition(op string, allowed []Stage, fn func(next *Context) error) (*Context, error) {
	ok := false
	for _, s := range allowed {
		if c.stage == s {
			ok = true
			break
		}
	}
	if !ok {
		return c, errors.NewStateError(op, c.stage.String(), stageList(allowed))
	}

	next := c.clone()
	err := errors.SafeExecute(op, func() error { return fn(next) })
	if err != nil {
		if next.stage == StageHalted {
			next.err = err
			return next, err
		}
		return c, err
	}
	return next, nil
}

// Load parses a CSV upload and starts a fresh workflow. It is accepted in
// every stage. A parse failure leaves the receiver untouched.
func (c *Context) Load(r io.Reader, source string) (*Context, error) {
	var d *dataset.Dataset
	err := errors.SafeExecute("Load", func() error {
		var err error
		d, err = dataset.Load(r, dataset.WithSource(source))
		return err
	})
	if err != nil {
		return c, err
	}
	next := New(c.opts)
	next.stage = StageDataLoaded
	next.source = source
	next.data = d
	return next, nil
}

// SelectColumns sets the optional ID column and the target. A non-numeric
// target halts the workflow.
func (c *Context) SelectColumns(idColumn, target string) (*Context, error) {
	return c.transition("SelectColumns", []Stage{StageDataLoaded}, func(next *Context) error {
		if !next.data.Has(target) {
			return errors.NewValidationError("target", "no such column", target)
		}
		if idColumn != "" {
			if !next.data.Has(idColumn) {
				return errors.NewValidationError("id_column", "no such column", idColumn)
			}
			if idColumn == target {
				return errors.NewValidationError("id_column", "ID column must differ from the target", idColumn)
			}
		}
		kind, _ := next.data.Kind(target)
		if !kind.IsNumeric() {
			next.stage = StageHalted
			return errors.NewValidationError("target",
				fmt.Sprintf("target column must be numeric (integer or float); '%s' is %s", target, kind), target)
		}
		next.idColumn = idColumn
		next.target = target
		next.stage = StageTargetSelected
		return nil
	})
}

// InspectNulls counts missing values without changing the data.
func (c *Context) InspectNulls() (*Context, error) {
	return c.transition("InspectNulls", []Stage{StageTargetSelected}, func(next *Context) error {
		report := preprocessing.CountNulls(next.data)
		next.nulls = &report
		next.stage = StageNullsInspected
		return nil
	})
}

// ResolveNulls drops or mean-imputes missing values. It is only available
// when the inspection found at least one column with nulls.
func (c *Context) ResolveNulls(strategy preprocessing.NullStrategy) (*Context, error) {
	if c.stage == StageNullsInspected && !c.nulls.HasNulls() {
		return c, errors.NewStateError("ResolveNulls", c.stage.String()+" without nulls", StageNullsInspected.String()+" with nulls")
	}
	return c.transition("ResolveNulls", []Stage{StageNullsInspected}, func(next *Context) error {
		var resolved *dataset.Dataset
		switch strategy {
		case preprocessing.StrategyDrop:
			var err error
			if resolved, err = preprocessing.DropRowsWithNulls(next.data); err != nil {
				return err
			}
		case preprocessing.StrategyMean:
			var warnings []error
			resolved, warnings = preprocessing.ImputeMean(next.data)
			next.warnings = append(next.warnings, warnings...)
		default:
			return errors.NewValidationError("null_strategy", "must be 'drop' or 'mean'", string(strategy))
		}
		report := preprocessing.CountNulls(resolved)
		next.data = resolved
		next.remaining = &report
		next.strategy = strategy
		next.stage = StageNullsResolved
		return nil
	})
}

// Encode one-hot encodes categorical columns and derives X and y. From
// NullsInspected it requires that no nulls were found.
func (c *Context) Encode() (*Context, error) {
	if c.stage == StageNullsInspected && c.nulls.HasNulls() {
		return c, errors.NewStateError("Encode", c.stage.String()+" with nulls", StageNullsResolved.String())
	}
	return c.transition("Encode", []Stage{StageNullsInspected, StageNullsResolved}, func(next *Context) error {
		encoded, features, err := preprocessing.BuildFeatures(next.data, next.target, next.idColumn)
		if err != nil {
			return err
		}
		next.encoded = encoded
		next.features = features
		next.stage = StagePreprocessed
		return nil
	})
}

// Explore computes the feature correlation matrix.
func (c *Context) Explore() (*Context, error) {
	return c.transition("Explore", []Stage{StagePreprocessed, StageExplored}, func(next *Context) error {
		corr, err := stats.CorrelationMatrix(next.features.X, next.features.FeatureNames)
		if err != nil {
			return err
		}
		next.correlation = corr
		next.stage = StageExplored
		return nil
	})
}

// Train splits X and y, holding out testPercent percent of the rows, and
// fits the scaler + logistic regression pipeline on the training part.
func (c *Context) Train(testPercent int) (*Context, error) {
	return c.transition("Train", []Stage{StagePreprocessed, StageExplored}, func(next *Context) error {
		if testPercent < MinTestPercent || testPercent > MaxTestPercent {
			return errors.NewValidationError("test_percent",
				fmt.Sprintf("must be between %d and %d", MinTestPercent, MaxTestPercent), testPercent)
		}

		var splitOpts []model_selection.SplitOption
		if next.opts.RandomState >= 0 {
			splitOpts = append(splitOpts, model_selection.WithRandomState(uint64(next.opts.RandomState)))
		}
		split, err := model_selection.TrainTestSplit(next.features.X, next.features.Y, float64(testPercent)/100, splitOpts...)
		if err != nil {
			return err
		}

		pipeline, err := next.newPipeline()
		if err != nil {
			return err
		}
		if err := pipeline.Fit(split.XTrain, split.YTrain); err != nil {
			return err
		}

		next.testPercent = testPercent
		next.split = split
		next.model = pipeline
		next.stage = StageTrained
		return nil
	})
}

func (c *Context) newPipeline() (*linear_model.Pipeline, error) {
	m := c.opts.Model
	scaler, err := preprocessing.NewScaler(m.Scaler)
	if err != nil {
		return nil, err
	}
	clf := linear_model.NewLogisticRegression(
		linear_model.WithLRC(m.C),
		linear_model.WithLRMaxIter(m.MaxIter),
		linear_model.WithLRTol(m.Tol),
		linear_model.WithLRMultiClass(m.MultiClass),
	)
	return linear_model.NewPipeline(clf, scaler), nil
}

// Evaluate scores the trained model on the held-out rows.
func (c *Context) Evaluate() (*Context, error) {
	return c.transition("Evaluate", []Stage{StageTrained}, func(next *Context) error {
		pred, err := next.model.Predict(next.split.XTest)
		if err != nil {
			return err
		}
		acc, err := metrics.AccuracyScore(next.split.YTest, pred)
		if err != nil {
			return err
		}
		cm, err := metrics.NewConfusionMatrix(next.split.YTest, pred)
		if err != nil {
			return err
		}
		next.accuracy = acc
		next.confusion = cm
		next.stage = StageEvaluated
		return nil
	})
}

// Stage returns the current stage.
func (c *Context) Stage() Stage { return c.stage }

// Err returns the error that halted the workflow, if any.
func (c *Context) Err() error { return c.err }

// Options returns the options the workflow was created with.
func (c *Context) Options() Options { return c.opts }

func (c *Context) reached(s Stage) bool {
	return c.stage != StageHalted && c.stage >= s
}

// Flags derives the progress markers from the stage. Nulls count as handled
// once resolved, or once an inspection found none.
func (c *Context) Flags() Flags {
	cleanInspection := c.stage == StageNullsInspected && !c.nulls.HasNulls()
	return Flags{
		DataLoaded:   c.data != nil,
		TargetSet:    c.reached(StageTargetSelected),
		NullsHandled: c.reached(StageNullsResolved) || cleanInspection,
		Preprocessed: c.reached(StagePreprocessed),
		ModelTrained: c.reached(StageTrained),
	}
}

// Source is the name of the uploaded file.
func (c *Context) Source() string { return c.source }

// Dataset is the current table: the upload, or its null-resolved version.
func (c *Context) Dataset() *dataset.Dataset { return c.data }

// IDColumn is the selected ID column, or "".
func (c *Context) IDColumn() string { return c.idColumn }

// Target is the selected target column, or "".
func (c *Context) Target() string { return c.target }

// NullReport is the inspection result, available from NullsInspected.
func (c *Context) NullReport() (preprocessing.NullReport, bool) {
	if c.nulls == nil {
		return preprocessing.NullReport{}, false
	}
	return *c.nulls, true
}

// RemainingNulls is the null count after resolution, available from NullsResolved.
func (c *Context) RemainingNulls() (preprocessing.NullReport, bool) {
	if c.remaining == nil {
		return preprocessing.NullReport{}, false
	}
	return *c.remaining, true
}

// Strategy is the null strategy applied, or "".
func (c *Context) Strategy() preprocessing.NullStrategy { return c.strategy }

// Warnings collected by the transitions so far, e.g. ImputationWarning.
func (c *Context) Warnings() []error {
	return append([]error(nil), c.warnings...)
}

// Encoded is the one-hot encoded table, available from Preprocessed.
func (c *Context) Encoded() *dataset.Dataset { return c.encoded }

// Features is X and y, available from Preprocessed.
func (c *Context) Features() *preprocessing.FeatureSet { return c.features }

// Correlation is the feature correlation matrix, available from Explored.
func (c *Context) Correlation() *stats.Correlation { return c.correlation }

// TestPercent is the percentage of rows held out by Train.
func (c *Context) TestPercent() int { return c.testPercent }

// Split is the train/test partition, available from Trained.
func (c *Context) Split() *model_selection.Split { return c.split }

// Model is the fitted pipeline, available from Trained.
func (c *Context) Model() *linear_model.Pipeline { return c.model }

// Accuracy on the test rows, available from Evaluated.
func (c *Context) Accuracy() float64 { return c.accuracy }

// Confusion is the test-set confusion matrix, available from Evaluated.
func (c *Context) Confusion() *metrics.ConfusionMatrix { return c.confusion }
