// Standard attribute keys for workflow and model operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that logs can be filtered per concern.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model, e.g. "LogisticRegression".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase ("preprocessing", "training", ...).
	PhaseKey = "ml.phase"
)

// Workflow Context
const (
	// StageKey records the workflow stage after a transition.
	StageKey = "workflow.stage"

	// FromStageKey records the workflow stage before a transition.
	FromStageKey = "workflow.from_stage"

	// TargetKey records the selected target column.
	TargetKey = "workflow.target"

	// IDColumnKey records the selected ID column, if any.
	IDColumnKey = "workflow.id_column"

	// StrategyKey records the null handling strategy.
	StrategyKey = "workflow.null_strategy"
)

// Data Shape and Characteristics
const (
	// SamplesKey is the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// ColumnsKey is the number of columns in the raw dataset.
	ColumnsKey = "data.columns"

	// NullColumnsKey is the number of columns with at least one missing value.
	NullColumnsKey = "data.null_columns"

	// ClassesKey is the number of distinct labels.
	ClassesKey = "data.classes"

	// TestFractionKey is the fraction of rows held out for evaluation.
	TestFractionKey = "data.test_fraction"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy in [0.0, 1.0].
	AccuracyKey = "metrics.accuracy"

	// LossKey records the training loss.
	LossKey = "metrics.loss"

	// IterationKey records the iteration count of an iterative solver.
	IterationKey = "training.iteration"
)

// Error Context
const (
	// ErrorTypeKey categorizes the error ("ValidationError", "DataError", ...).
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// HTTP Context
const (
	// HTTPMethodKey records the request method.
	HTTPMethodKey = "http.method"

	// HTTPPathKey records the request path.
	HTTPPathKey = "http.path"

	// HTTPStatusKey records the response status code.
	HTTPStatusKey = "http.status"
)

// Hyperparameters and Configuration
const (
	// RegularizationKey records the inverse regularization strength C.
	RegularizationKey = "hyperparams.regularization"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationLoad      = "load"
	OperationSelect    = "select_columns"
	OperationNulls     = "inspect_nulls"
	OperationResolve   = "resolve_nulls"
	OperationEncode    = "encode"
	OperationExplore   = "explore"
	OperationSplit     = "split"
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseEvaluation    = "evaluation"
)
