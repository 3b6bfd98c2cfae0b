// Package linear_model provides the logistic regression classifier and the
// scaler + classifier pipeline trained by the workflow.
package linear_model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepml/core/model"
	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/pkg/log"
)

const modelName = "LogisticRegression"

// Multi-class strategies.
const (
	MultiClassAuto        = "auto"
	MultiClassMultinomial = "multinomial"
	MultiClassOVR         = "ovr"
)

// LogisticRegression implements L2-regularised logistic regression for
// classification. The objective matches scikit-learn's:
// 0.5*||w||^2 + C * sum(log-loss), minimised by full-batch gradient descent.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2" or "none"
	C            float64 // Inverse regularization strength
	fitIntercept bool    // Whether to fit intercept
	maxIter      int     // Maximum iterations
	multiClass   string  // Multi-class: "auto", "ovr", "multinomial"
	tol          float64 // Stop when the largest gradient component is below tol

	// Model parameters
	coef      *mat.Dense // 1 x n_features for binary, n_classes x n_features otherwise
	intercept []float64
	classes   []float64 // Sorted distinct labels
	nIter     []int     // Iterations used per weight row
	loss      float64   // Final training loss

	logger log.Logger
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		maxIter:      1000,
		multiClass:   MultiClassAuto,
		tol:          1e-4,
	}

	for _, opt := range opts {
		opt(lr)
	}
	if lr.logger == nil {
		lr.logger = log.GetLoggerWithName("linear_model.logistic")
	}
	return lr
}

// WithLRPenalty sets the regularization type ("l2" or "none")
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRMultiClass selects "auto", "multinomial" or "ovr"
func WithLRMultiClass(multiClass string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.multiClass = multiClass
	}
}

// WithLRLogger overrides the logger
func WithLRLogger(logger log.Logger) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.logger = logger
	}
}

func (lr *LogisticRegression) validateParams() error {
	if lr.C <= 0 || math.IsNaN(lr.C) {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	if lr.tol <= 0 {
		return errors.NewValidationError("tol", "must be positive", lr.tol)
	}
	switch lr.penalty {
	case "l2", "none":
	default:
		return errors.NewValidationError("penalty", "must be l2 or none", lr.penalty)
	}
	switch lr.multiClass {
	case MultiClassAuto, MultiClassMultinomial, MultiClassOVR:
	default:
		return errors.NewValidationError("multi_class", "must be auto, multinomial or ovr", lr.multiClass)
	}
	return nil
}

// Fit trains the model. y is an n x 1 matrix (a *mat.VecDense works) of
// label values; at least two distinct labels are required.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validateParams(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 {
		return errors.NewFitError(modelName, "X has 0 samples")
	}
	if nFeatures == 0 {
		return errors.NewFitError(modelName, "X has 0 features")
	}
	if yCols != 1 {
		return errors.NewFitError(modelName, fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}
	if nSamples != yRows {
		return errors.NewFitError(modelName, fmt.Sprintf(
			"X and y must have the same number of samples: got %d and %d", nSamples, yRows))
	}

	labels := mat.Col(nil, 0, y)
	if err := errors.CheckNumericalStability("LogisticRegression.labels", labels, 0); err != nil {
		return errors.NewFitError(modelName, "y contains NaN or Inf")
	}
	lr.classes = uniqueSorted(labels)
	if len(lr.classes) < 2 {
		return errors.NewFitError(modelName, fmt.Sprintf(
			"y has %d distinct class; at least 2 are required", len(lr.classes)))
	}

	lr.state.Reset()
	lr.logger.Debug("Training started",
		log.ModelNameKey, modelName,
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(lr.classes),
		log.RegularizationKey, lr.C,
	)

	var err error
	switch {
	case len(lr.classes) == 2:
		lr.coef = mat.NewDense(1, nFeatures, nil)
		lr.intercept = make([]float64, 1)
		lr.nIter = make([]int, 1)
		err = lr.fitBinary(X, lr.indicator(labels, 1), 0)
	case lr.multiClass == MultiClassOVR:
		err = lr.fitOVR(X, labels)
	default:
		err = lr.fitMultinomial(X, labels)
	}
	if err != nil {
		return err
	}

	lr.state.SetFitted(nFeatures, nSamples)
	lr.logger.Debug("Training completed",
		log.ModelNameKey, modelName,
		log.IterationKey, floats.Max(intsToFloats(lr.nIter)),
		log.LossKey, lr.loss,
	)
	return nil
}

// lambda is the per-sample L2 strength: the gradient of 0.5*||w||^2 / (C*n).
func (lr *LogisticRegression) lambda(nSamples int) float64 {
	if lr.penalty == "none" {
		return 0
	}
	return 1.0 / (lr.C * float64(nSamples))
}

// stepSize returns 1/L for an upper bound L on the gradient's Lipschitz
// constant, which keeps gradient descent monotone.
func (lr *LogisticRegression) stepSize(X mat.Matrix, nSamples int) float64 {
	norm := mat.Norm(X, 2)
	sq := norm * norm
	if lr.fitIntercept {
		sq += float64(nSamples)
	}
	L := 0.5*sq/float64(nSamples) + lr.lambda(nSamples)
	if L <= 0 {
		return 1
	}
	return 1 / L
}

// indicator returns 1 where labels equals classes[k], 0 elsewhere.
func (lr *LogisticRegression) indicator(labels []float64, k int) *mat.VecDense {
	out := mat.NewVecDense(len(labels), nil)
	for i, v := range labels {
		if v == lr.classes[k] {
			out.SetVec(i, 1)
		}
	}
	return out
}

// fitBinary fits one sigmoid model into row `row` of coef.
func (lr *LogisticRegression) fitBinary(X mat.Matrix, target *mat.VecDense, row int) error {
	nSamples, nFeatures := X.Dims()
	lambda := lr.lambda(nSamples)
	step := lr.stepSize(X, nSamples)

	w := mat.NewVecDense(nFeatures, nil)
	b := 0.0
	z := mat.NewVecDense(nSamples, nil)
	residual := mat.NewVecDense(nSamples, nil)
	grad := mat.NewVecDense(nFeatures, nil)

	converged := false
	for iter := 0; iter < lr.maxIter; iter++ {
		z.MulVec(X, w)
		for i := 0; i < nSamples; i++ {
			residual.SetVec(i, sigmoid(z.AtVec(i)+b)-target.AtVec(i))
		}

		grad.MulVec(X.T(), residual)
		grad.ScaleVec(1/float64(nSamples), grad)
		grad.AddScaledVec(grad, lambda, w)
		gradB := 0.0
		if lr.fitIntercept {
			gradB = mat.Sum(residual) / float64(nSamples)
		}

		if err := errors.CheckNumericalStability("LogisticRegression.gradient", grad.RawVector().Data, iter); err != nil {
			return err
		}

		lr.nIter[row] = iter + 1
		if math.Max(maxAbs(grad.RawVector().Data), math.Abs(gradB)) < lr.tol {
			converged = true
			break
		}

		w.AddScaledVec(w, -step, grad)
		b -= step * gradB
	}

	lr.coef.SetRow(row, w.RawVector().Data)
	lr.intercept[row] = b
	lr.loss = binaryLoss(X, target, w, b) + 0.5*lambda*mat.Dot(w, w)
	if !converged {
		errors.Warn(errors.NewConvergenceWarning(modelName, lr.maxIter, "increase max_iter or scale the data"))
	}
	return nil
}

// fitOVR fits one binary classifier per class.
func (lr *LogisticRegression) fitOVR(X mat.Matrix, labels []float64) error {
	_, nFeatures := X.Dims()
	k := len(lr.classes)
	lr.coef = mat.NewDense(k, nFeatures, nil)
	lr.intercept = make([]float64, k)
	lr.nIter = make([]int, k)

	for classIdx := range lr.classes {
		if err := lr.fitBinary(X, lr.indicator(labels, classIdx), classIdx); err != nil {
			return errors.Wrapf(err, "failed to fit class %v", lr.classes[classIdx])
		}
	}
	return nil
}

// fitMultinomial minimises the softmax cross-entropy over all classes jointly.
func (lr *LogisticRegression) fitMultinomial(X mat.Matrix, labels []float64) error {
	nSamples, nFeatures := X.Dims()
	k := len(lr.classes)
	lambda := lr.lambda(nSamples)
	step := lr.stepSize(X, nSamples)

	onehot := mat.NewDense(nSamples, k, nil)
	for c := range lr.classes {
		onehot.SetCol(c, lr.indicator(labels, c).RawVector().Data)
	}

	W := mat.NewDense(k, nFeatures, nil)
	b := make([]float64, k)
	scores := mat.NewDense(nSamples, k, nil)
	grad := mat.NewDense(k, nFeatures, nil)
	gradB := make([]float64, k)
	lr.nIter = []int{0}

	converged := false
	for iter := 0; iter < lr.maxIter; iter++ {
		scores.Mul(X, W.T())
		softmaxRows(scores, b)
		scores.Sub(scores, onehot)

		grad.Mul(scores.T(), X)
		grad.Scale(1/float64(nSamples), grad)
		if lambda > 0 {
			grad.Apply(func(i, j int, v float64) float64 { return v + lambda*W.At(i, j) }, grad)
		}
		for c := 0; c < k; c++ {
			gradB[c] = 0
			if lr.fitIntercept {
				gradB[c] = floats.Sum(mat.Col(nil, c, scores)) / float64(nSamples)
			}
		}

		if err := errors.CheckNumericalStability("LogisticRegression.gradient", grad.RawMatrix().Data, iter); err != nil {
			return err
		}

		lr.nIter[0] = iter + 1
		if math.Max(maxAbs(grad.RawMatrix().Data), maxAbs(gradB)) < lr.tol {
			converged = true
			break
		}

		W.Apply(func(i, j int, v float64) float64 { return v - step*grad.At(i, j) }, W)
		floats.AddScaled(b, -step, gradB)
	}

	lr.coef = W
	lr.intercept = b
	lr.loss = multinomialLoss(X, onehot, W, b) + 0.5*lambda*mat.Sum(mulElem(W, W))
	if !converged {
		errors.Warn(errors.NewConvergenceWarning(modelName, lr.maxIter, "increase max_iter or scale the data"))
	}
	return nil
}

// decision returns the raw linear scores, n x rows(coef).
func (lr *LogisticRegression) decision(X mat.Matrix, method string) (*mat.Dense, error) {
	if err := lr.state.RequireFitted(modelName, method); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := lr.state.RequireFeatures(modelName+"."+method, nFeatures); err != nil {
		return nil, err
	}

	rows, _ := lr.coef.Dims()
	scores := mat.NewDense(nSamples, rows, nil)
	scores.Mul(X, lr.coef.T())
	scores.Apply(func(i, j int, v float64) float64 { return v + lr.intercept[j] }, scores)
	return scores, nil
}

// Predict returns the predicted label of each row as an n x 1 matrix.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.decision(X, "Predict")
	if err != nil {
		return nil, err
	}

	nSamples, width := scores.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		if width == 1 {
			label := lr.classes[0]
			if scores.At(i, 0) > 0 {
				label = lr.classes[1]
			}
			predictions.Set(i, 0, label)
			continue
		}
		predictions.Set(i, 0, lr.classes[floats.MaxIdx(scores.RawRowView(i))])
	}
	return predictions, nil
}

// PredictProba returns probability estimates, one column per class in
// Classes() order.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.decision(X, "PredictProba")
	if err != nil {
		return nil, err
	}

	nSamples, width := scores.Dims()
	probas := mat.NewDense(nSamples, len(lr.classes), nil)

	switch {
	case width == 1:
		for i := 0; i < nSamples; i++ {
			p := sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1-p)
			probas.Set(i, 1, p)
		}
	case lr.multiClass == MultiClassOVR:
		// 各クラスのシグモイド出力を行ごとに正規化する
		for i := 0; i < nSamples; i++ {
			row := probas.RawRowView(i)
			for c := range row {
				row[c] = sigmoid(scores.At(i, c))
			}
			floats.Scale(1/floats.Sum(row), row)
		}
	default:
		softmaxRows(scores, make([]float64, width))
		probas.Copy(scores)
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	nSamples, _ := X.Dims()
	if yRows, _ := y.Dims(); yRows != nSamples {
		return 0, errors.NewDimensionError(modelName+".Score", nSamples, yRows, 0)
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Classes returns the sorted distinct labels seen during Fit.
func (lr *LogisticRegression) Classes() []float64 {
	out := make([]float64, len(lr.classes))
	copy(out, lr.classes)
	return out
}

// Coef returns a copy of the fitted coefficients.
func (lr *LogisticRegression) Coef() *mat.Dense {
	if lr.coef == nil {
		return nil
	}
	return mat.DenseCopyOf(lr.coef)
}

// Intercept returns a copy of the fitted intercepts.
func (lr *LogisticRegression) Intercept() []float64 {
	out := make([]float64, len(lr.intercept))
	copy(out, lr.intercept)
	return out
}

// NIter returns the iterations used per weight row.
func (lr *LogisticRegression) NIter() []int {
	out := make([]int, len(lr.nIter))
	copy(out, lr.nIter)
	return out
}

// Loss returns the regularised training loss per sample after the final step.
func (lr *LogisticRegression) Loss() float64 {
	return lr.loss
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"max_iter":      lr.maxIter,
		"multi_class":   lr.multiClass,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = value.(float64)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "max_iter":
			lr.maxIter, ok = value.(int)
		case "multi_class":
			lr.multiClass, ok = value.(string)
		case "tol":
			lr.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", fmt.Sprintf("%T", value))
		}
	}
	return lr.validateParams()
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

// softmaxRows adds bias to each row of scores and replaces the row with its softmax.
func softmaxRows(scores *mat.Dense, bias []float64) {
	n, _ := scores.Dims()
	for i := 0; i < n; i++ {
		row := scores.RawRowView(i)
		floats.Add(row, bias)
		maxScore := floats.Max(row)
		for c := range row {
			row[c] = math.Exp(row[c] - maxScore)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
}

func binaryLoss(X mat.Matrix, target, w *mat.VecDense, b float64) float64 {
	n, _ := X.Dims()
	z := mat.NewVecDense(n, nil)
	z.MulVec(X, w)
	loss := 0.0
	for i := 0; i < n; i++ {
		p := sigmoid(z.AtVec(i) + b)
		if target.AtVec(i) == 1 {
			loss -= errors.StabilizeLog(p)
		} else {
			loss -= errors.StabilizeLog(1 - p)
		}
	}
	return loss / float64(n)
}

func multinomialLoss(X mat.Matrix, onehot, W *mat.Dense, b []float64) float64 {
	n, _ := X.Dims()
	_, k := onehot.Dims()
	probs := mat.NewDense(n, k, nil)
	probs.Mul(X, W.T())
	softmaxRows(probs, b)
	loss := 0.0
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			if onehot.At(i, c) == 1 {
				loss -= errors.StabilizeLog(probs.At(i, c))
			}
		}
	}
	return loss / float64(n)
}

func mulElem(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}

func uniqueSorted(values []float64) []float64 {
	seen := make(map[float64]bool)
	out := make([]float64, 0)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func maxAbs(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func intsToFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

var _ model.Classifier = (*LogisticRegression)(nil)
