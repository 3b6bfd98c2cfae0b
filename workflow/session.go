package workflow

import (
	"io"
	"sync"
	"time"

	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/pkg/log"
	"github.com/YuminosukeSato/stepml/preprocessing"
)

// Session holds the current Context for one operator and logs every
// transition. It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	ctx    *Context
	logger log.Logger
}

// NewSession starts an empty session.
func NewSession(opts Options) *Session {
	return &Session{
		ctx:    New(opts),
		logger: log.GetLoggerWithName("workflow"),
	}
}

// Context returns the current snapshot. Contexts are immutable, so the
// caller may keep reading it while the session moves on.
func (s *Session) Context() *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Reset discards all progress, keeping the options.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = New(s.ctx.Options())
	s.logger.Info("Workflow reset")
}

func (s *Session) apply(op string, fn func(c *Context) (*Context, error), fields ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.ctx.Stage()
	start := time.Now()
	next, err := fn(s.ctx)
	s.ctx = next

	fields = append(fields,
		log.OperationKey, op,
		log.FromStageKey, from.String(),
		log.StageKey, next.Stage().String(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	if err != nil {
		fields = append([]any{err, log.ErrorTypeKey, errors.Classify(err).String()}, fields...)
		if next.Stage() == StageHalted {
			s.logger.Error("Workflow halted", fields...)
		} else {
			s.logger.Warn("Transition rejected: "+err.Error(), fields[1:]...)
		}
		return err
	}
	s.logger.Info("Transition complete", fields...)
	return nil
}

// Load starts over with a new CSV upload.
func (s *Session) Load(r io.Reader, source string) error {
	err := s.apply(log.OperationLoad, func(c *Context) (*Context, error) {
		return c.Load(r, source)
	})
	if err == nil {
		rows, cols := s.Context().Dataset().Shape()
		s.logger.Debug("Dataset shape", log.SamplesKey, rows, log.ColumnsKey, cols)
	}
	return err
}

// SelectColumns sets the ID column (may be empty) and the target.
func (s *Session) SelectColumns(idColumn, target string) error {
	return s.apply(log.OperationSelect, func(c *Context) (*Context, error) {
		return c.SelectColumns(idColumn, target)
	}, log.IDColumnKey, idColumn, log.TargetKey, target)
}

// InspectNulls counts missing values per column.
func (s *Session) InspectNulls() error {
	return s.apply(log.OperationNulls, func(c *Context) (*Context, error) {
		next, err := c.InspectNulls()
		if err == nil {
			report, _ := next.NullReport()
			s.logger.Debug("Null inspection", log.NullColumnsKey, report.ColumnsWithNulls)
		}
		return next, err
	})
}

// ResolveNulls applies a null strategy. Warnings raised on the way, such
// as columns that could not be imputed, are logged.
func (s *Session) ResolveNulls(strategy preprocessing.NullStrategy) error {
	err := s.apply(log.OperationResolve, func(c *Context) (*Context, error) {
		return c.ResolveNulls(strategy)
	}, log.StrategyKey, string(strategy))
	if err == nil {
		for _, w := range s.Context().Warnings() {
			s.logger.Warn(w.Error(), log.OperationKey, log.OperationResolve)
		}
	}
	return err
}

// Encode one-hot encodes categoricals and derives X and y.
func (s *Session) Encode() error {
	return s.apply(log.OperationEncode, func(c *Context) (*Context, error) {
		next, err := c.Encode()
		if err == nil {
			n, p := next.Features().Shape()
			s.logger.Debug("Feature matrix", log.SamplesKey, n, log.FeaturesKey, p)
		}
		return next, err
	})
}

// Explore computes the correlation matrix.
func (s *Session) Explore() error {
	return s.apply(log.OperationExplore, func(c *Context) (*Context, error) {
		return c.Explore()
	})
}

// Train splits the data and fits the model.
func (s *Session) Train(testPercent int) error {
	seed := s.Context().Options().RandomState
	return s.apply(log.OperationFit, func(c *Context) (*Context, error) {
		return c.Train(testPercent)
	}, log.TestFractionKey, float64(testPercent)/100, log.RandomSeedKey, seed)
}

// Evaluate scores the model on the test rows.
func (s *Session) Evaluate() error {
	err := s.apply(log.OperationScore, func(c *Context) (*Context, error) {
		return c.Evaluate()
	})
	if err == nil {
		s.logger.Info("Model evaluated", log.AccuracyKey, s.Context().Accuracy())
	}
	return err
}
