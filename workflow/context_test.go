package workflow

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/preprocessing"
)

// classificationCSV builds n rows with an ID, two numeric features, a city
// and a binary target driven by the features.
func classificationCSV(n int) string {
	cities := []string{"Madrid", "Sevilla", "Valencia"}
	var b strings.Builder
	b.WriteString("id,x1,x2,city,target\n")
	for i := 0; i < n; i++ {
		x1 := i % 10
		x2 := (i * 7) % 13
		target := 0
		if float64(x1)+float64(x2)/2 > 7 {
			target = 1
		}
		fmt.Fprintf(&b, "%d,%d,%d,%s,%d\n", i+1, x1, x2, cities[i%3], target)
	}
	return b.String()
}

const nullsCSV = `age,city,target
25,Madrid,0
,Sevilla,1
40,Madrid,0
35,,1
50,Valencia,1
,Madrid,0
45,Sevilla,1
30,Valencia,0
`

func seededOptions() Options {
	opts := DefaultOptions()
	opts.RandomState = 42
	return opts
}

func load(t *testing.T, csv string) *Context {
	t.Helper()
	c, err := New(seededOptions()).Load(strings.NewReader(csv), "data.csv")
	require.NoError(t, err)
	require.Equal(t, StageDataLoaded, c.Stage())
	return c
}

func must(c *Context, err error) func(*testing.T) *Context {
	return func(t *testing.T) *Context {
		t.Helper()
		require.NoError(t, err)
		return c
	}
}

func TestFullWorkflow(t *testing.T) {
	c := load(t, classificationCSV(100))
	c = must(c.SelectColumns("id", "target"))(t)
	c = must(c.InspectNulls())(t)

	report, ok := c.NullReport()
	require.True(t, ok)
	assert.Equal(t, 5, report.TotalColumns)
	assert.False(t, report.HasNulls())
	assert.True(t, c.Flags().NullsHandled)

	c = must(c.Encode())(t)
	assert.Equal(t, StagePreprocessed, c.Stage())
	assert.Equal(t, []string{"x1", "x2", "city_Madrid", "city_Sevilla", "city_Valencia"}, c.Features().FeatureNames)

	c = must(c.Explore())(t)
	assert.Equal(t, 5, c.Correlation().Size())

	c = must(c.Train(30))(t)
	assert.Equal(t, StageTrained, c.Stage())
	testRows, _ := c.Split().XTest.Dims()
	trainRows, _ := c.Split().XTrain.Dims()
	assert.Equal(t, 30, testRows)
	assert.Equal(t, 70, trainRows)
	assert.Equal(t, []float64{0, 1}, c.Model().Classes())

	c = must(c.Evaluate())(t)
	assert.Equal(t, StageEvaluated, c.Stage())
	assert.GreaterOrEqual(t, c.Accuracy(), 0.0)
	assert.LessOrEqual(t, c.Accuracy(), 1.0)
	assert.Equal(t, 30, c.Confusion().Total())
	assert.InDelta(t, c.Confusion().Accuracy(), c.Accuracy(), 1e-12)

	assert.Equal(t, Flags{true, true, true, true, true}, c.Flags())
}

func TestTrainingIsReproducibleWithSeed(t *testing.T) {
	run := func() *Context {
		c := load(t, classificationCSV(100))
		c = must(c.SelectColumns("id", "target"))(t)
		c = must(c.InspectNulls())(t)
		c = must(c.Encode())(t)
		c = must(c.Train(30))(t)
		return must(c.Evaluate())(t)
	}
	a, b := run(), run()
	assert.Equal(t, a.Split().TestIndices, b.Split().TestIndices)
	assert.Equal(t, a.Accuracy(), b.Accuracy())
}

func TestExploreIsOptional(t *testing.T) {
	c := load(t, classificationCSV(40))
	c = must(c.SelectColumns("", "target"))(t)
	c = must(c.InspectNulls())(t)
	c = must(c.Encode())(t)
	c = must(c.Train(25))(t)
	assert.Nil(t, c.Correlation())
	// 40 * 0.25 は割り切れる
	testRows, _ := c.Split().XTest.Dims()
	assert.Equal(t, 10, testRows)
	// The ID column was not selected, so it stays a feature.
	assert.Contains(t, c.Features().FeatureNames, "id")
}

func TestNullResolution(t *testing.T) {
	base := load(t, nullsCSV)
	base = must(base.SelectColumns("", "target"))(t)
	base = must(base.InspectNulls())(t)

	report, _ := base.NullReport()
	assert.Equal(t, 2, report.ColumnsWithNulls)
	assert.Equal(t, 2, report.PerColumn["age"])

	// Encoding is gated until nulls are resolved.
	_, err := base.Encode()
	var stateErr *errors.StateError
	require.ErrorAs(t, err, &stateErr)

	t.Run("drop", func(t *testing.T) {
		c := must(base.ResolveNulls(preprocessing.StrategyDrop))(t)
		assert.Equal(t, StageNullsResolved, c.Stage())
		assert.Equal(t, 5, c.Dataset().NRows())
		remaining, ok := c.RemainingNulls()
		require.True(t, ok)
		assert.False(t, remaining.HasNulls())
		assert.True(t, c.Flags().NullsHandled)
	})

	t.Run("mean", func(t *testing.T) {
		c := must(base.ResolveNulls(preprocessing.StrategyMean))(t)
		assert.Equal(t, 8, c.Dataset().NRows())
		age, _ := c.Dataset().Column("age")
		assert.Zero(t, age.NullCount())
		assert.InDelta(t, 225.0/6.0, age.Float(1), 1e-9)

		// The categorical null survives imputation and encodes to all zeros.
		remaining, _ := c.RemainingNulls()
		assert.Equal(t, 1, remaining.PerColumn["city"])
		c = must(c.Encode())(t)
		assert.Equal(t, StagePreprocessed, c.Stage())
	})

	t.Run("unknown strategy", func(t *testing.T) {
		c, err := base.ResolveNulls("median")
		var validationErr *errors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Same(t, base, c)
	})

	// The base context is untouched by the branches above.
	assert.Equal(t, StageNullsInspected, base.Stage())
	assert.Equal(t, 8, base.Dataset().NRows())
}

func TestResolveNullsRequiresNulls(t *testing.T) {
	c := load(t, classificationCSV(20))
	c = must(c.SelectColumns("id", "target"))(t)
	c = must(c.InspectNulls())(t)

	next, err := c.ResolveNulls(preprocessing.StrategyDrop)
	var stateErr *errors.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Same(t, c, next)
}

func TestStageGuards(t *testing.T) {
	empty := New(DefaultOptions())
	loaded := load(t, classificationCSV(20))

	tests := []struct {
		name string
		run  func() (*Context, error)
		from *Context
	}{
		{"select before load", func() (*Context, error) { return empty.SelectColumns("", "target") }, empty},
		{"inspect before select", loaded.InspectNulls, loaded},
		{"encode before inspect", loaded.Encode, loaded},
		{"explore before encode", loaded.Explore, loaded},
		{"train before encode", func() (*Context, error) { return loaded.Train(30) }, loaded},
		{"evaluate before train", loaded.Evaluate, loaded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := tt.run()
			var stateErr *errors.StateError
			require.ErrorAs(t, err, &stateErr)
			assert.Equal(t, errors.CategoryState, errors.Classify(err))
			assert.Same(t, tt.from, next)
		})
	}
}

func TestSelectColumnsValidation(t *testing.T) {
	c := load(t, classificationCSV(20))

	tests := []struct {
		name     string
		idColumn string
		target   string
	}{
		{"unknown target", "", "label"},
		{"unknown id", "key", "target"},
		{"id equals target", "target", "target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := c.SelectColumns(tt.idColumn, tt.target)
			var validationErr *errors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Same(t, c, next)
			assert.Equal(t, StageDataLoaded, next.Stage())
		})
	}
}

func TestNonNumericTargetHalts(t *testing.T) {
	c := load(t, classificationCSV(20))
	halted, err := c.SelectColumns("id", "city")
	require.Error(t, err)
	assert.Equal(t, StageHalted, halted.Stage())
	assert.Equal(t, err, halted.Err())
	assert.Contains(t, err.Error(), "numeric")
	assert.Equal(t, Flags{DataLoaded: true}, halted.Flags())

	// Halted accepts nothing but a new upload.
	_, err = halted.InspectNulls()
	var stateErr *errors.StateError
	require.ErrorAs(t, err, &stateErr)
	_, err = halted.SelectColumns("id", "target")
	require.ErrorAs(t, err, &stateErr)

	restarted, err := halted.Load(strings.NewReader(classificationCSV(20)), "again.csv")
	require.NoError(t, err)
	assert.Equal(t, StageDataLoaded, restarted.Stage())
	assert.NoError(t, restarted.Err())
	assert.Equal(t, "again.csv", restarted.Source())
}

func TestLoadFailureKeepsContext(t *testing.T) {
	c := load(t, classificationCSV(20))
	c = must(c.SelectColumns("id", "target"))(t)

	next, err := c.Load(strings.NewReader("a,b\n1,2,3\n"), "broken.csv")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryInput, errors.Classify(err))
	assert.Same(t, c, next)
	assert.Equal(t, "target", next.Target())
}

func TestReloadDiscardsProgress(t *testing.T) {
	c := load(t, classificationCSV(30))
	c = must(c.SelectColumns("id", "target"))(t)
	c = must(c.InspectNulls())(t)
	c = must(c.Encode())(t)

	c = must(c.Load(strings.NewReader(nullsCSV), "nulls.csv"))(t)
	assert.Equal(t, StageDataLoaded, c.Stage())
	assert.Empty(t, c.Target())
	assert.Nil(t, c.Features())
	assert.Equal(t, Flags{DataLoaded: true}, c.Flags())
}

func TestTrainValidatesTestPercent(t *testing.T) {
	c := load(t, classificationCSV(30))
	c = must(c.SelectColumns("id", "target"))(t)
	c = must(c.InspectNulls())(t)
	c = must(c.Encode())(t)

	for _, pct := range []int{0, 9, 51, 100} {
		next, err := c.Train(pct)
		var validationErr *errors.ValidationError
		require.ErrorAs(t, err, &validationErr, "percent %d", pct)
		assert.Same(t, c, next)
	}
}

func TestSingleClassTargetFailsToTrain(t *testing.T) {
	csv := "x,target\n1,1\n2,1\n3,1\n4,1\n5,1\n6,1\n7,1\n8,1\n9,1\n10,1\n"
	c := load(t, csv)
	c = must(c.SelectColumns("", "target"))(t)
	c = must(c.InspectNulls())(t)
	c = must(c.Encode())(t)

	next, err := c.Train(30)
	var fitErr *errors.FitError
	require.ErrorAs(t, err, &fitErr)
	assert.Equal(t, errors.CategoryData, errors.Classify(err))
	assert.Same(t, c, next)
	assert.Equal(t, StagePreprocessed, next.Stage())
}

func TestTransitionRecoversPanics(t *testing.T) {
	c := New(DefaultOptions())
	next, err := c.transition("Boom", []Stage{StageEmpty}, func(*Context) error {
		panic("boom")
	})
	var panicErr *errors.PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Same(t, c, next)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "NullsInspected", StageNullsInspected.String())
	assert.Equal(t, "Unknown", Stage(99).String())
	text, err := StageHalted.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Halted", string(text))
	var s Stage
	require.NoError(t, s.UnmarshalText([]byte("Explored")))
	assert.Equal(t, StageExplored, s)
	assert.Error(t, s.UnmarshalText([]byte("Done")))
	assert.Equal(t, "Preprocessed or Explored", stageList([]Stage{StagePreprocessed, StageExplored}))
}
