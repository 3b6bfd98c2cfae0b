package linear_model

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepml/core/model"
	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// Pipeline chains optional feature transformers in front of a classifier.
// Fit fits each step on the output of the previous one; Predict replays the
// fitted transforms before delegating to the classifier.
type Pipeline struct {
	steps      []model.Transformer
	classifier model.Classifier
	fitted     bool
}

// NewPipeline builds a pipeline. Nil transformers are skipped so that
// preprocessing.NewScaler("none") can be passed straight through.
func NewPipeline(classifier model.Classifier, steps ...model.Transformer) *Pipeline {
	p := &Pipeline{classifier: classifier}
	for _, s := range steps {
		if s != nil {
			p.steps = append(p.steps, s)
		}
	}
	return p
}

// Fit trains every step and then the classifier.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	p.fitted = false
	var err error
	for _, step := range p.steps {
		if X, err = step.FitTransform(X); err != nil {
			return err
		}
	}
	if err := p.classifier.Fit(X, y); err != nil {
		return err
	}
	p.fitted = true
	return nil
}

func (p *Pipeline) transform(X mat.Matrix, method string) (mat.Matrix, error) {
	if !p.fitted {
		return nil, errors.NewNotFittedError("Pipeline", method)
	}
	var err error
	for _, step := range p.steps {
		if X, err = step.Transform(X); err != nil {
			return nil, err
		}
	}
	return X, nil
}

// Predict returns one predicted label per row as an n x 1 matrix.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := p.transform(X, "Predict")
	if err != nil {
		return nil, err
	}
	return p.classifier.Predict(Xt)
}

// PredictProba returns class probabilities in Classes() order.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := p.transform(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	return p.classifier.PredictProba(Xt)
}

// Classes returns the classifier's labels.
func (p *Pipeline) Classes() []float64 {
	return p.classifier.Classes()
}

// Classifier exposes the final estimator.
func (p *Pipeline) Classifier() model.Classifier {
	return p.classifier
}

// String lists the steps, e.g. "Pipeline(StandardScaler -> LogisticRegression)".
func (p *Pipeline) String() string {
	names := make([]string, 0, len(p.steps)+1)
	for _, s := range p.steps {
		names = append(names, stepName(s))
	}
	names = append(names, stepName(p.classifier))
	return "Pipeline(" + strings.Join(names, " -> ") + ")"
}

func stepName(v interface{}) string {
	if s, ok := v.(interface{ String() string }); ok {
		name := s.String()
		if i := strings.IndexByte(name, '('); i > 0 {
			return name[:i]
		}
		return name
	}
	if _, ok := v.(*LogisticRegression); ok {
		return modelName
	}
	return "step"
}

var _ model.Classifier = (*Pipeline)(nil)
