package server

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"gonum.org/v1/plot"

	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/plotting"
	"github.com/YuminosukeSato/stepml/preprocessing"
	"github.com/YuminosukeSato/stepml/workflow"
)

const previewRows = 5

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, newStateResponse(s.session.Context()))
}

func (s *Server) handleReset(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reset()
	return c.JSON(http.StatusOK, newStateResponse(s.session.Context()))
}

func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("multipart field 'file' is required", err)
	}
	f, err := fh.Open()
	if err != nil {
		return toHTTPError(errors.NewInputError(fh.Filename, "cannot open upload", err))
	}
	defer f.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Load(f, fh.Filename); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, newDatasetResponse(s.session.Context()))
}

// handleColumns selects the ID and target columns and inspects nulls.
func (s *Server) handleColumns(c echo.Context) error {
	var req ColumnsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("cannot understand the requested json", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.SelectColumns(req.IDColumn, req.Target); err != nil {
		return toHTTPError(err)
	}
	if err := s.session.InspectNulls(); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newNullsResponse(s.session.Context()))
}

func (s *Server) handleGetNulls(c echo.Context) error {
	ctx := s.session.Context()
	if _, ok := ctx.NullReport(); !ok {
		return toHTTPError(errors.NewStateError("GetNulls", ctx.Stage().String(), workflow.StageNullsInspected.String()))
	}
	return c.JSON(http.StatusOK, newNullsResponse(ctx))
}

func (s *Server) handleResolveNulls(c echo.Context) error {
	var req NullsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("cannot understand the requested json", err)
	}
	strategy, err := preprocessing.ParseNullStrategy(req.Strategy)
	if err != nil {
		return toHTTPError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.ResolveNulls(strategy); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newNullsResponse(s.session.Context()))
}

func (s *Server) handleEncode(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Encode(); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newFeaturesResponse(s.session.Context()))
}

// explore computes the correlation matrix on first use.
func (s *Server) explore() (*workflow.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx := s.session.Context(); ctx.Correlation() != nil {
		return ctx, nil
	}
	if err := s.session.Explore(); err != nil {
		return nil, err
	}
	return s.session.Context(), nil
}

func (s *Server) handleCorrelation(c echo.Context) error {
	ctx, err := s.explore()
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newCorrelationResponse(ctx))
}

func (s *Server) handleCorrelationPNG(c echo.Context) error {
	ctx, err := s.explore()
	if err != nil {
		return toHTTPError(err)
	}
	p, err := plotting.CorrelationHeatmap(ctx.Correlation())
	if err != nil {
		return toHTTPError(err)
	}
	return writePNG(c, p)
}

// handleTrain splits, trains and evaluates. A missing test_percent falls
// back to the configured default.
func (s *Server) handleTrain(c echo.Context) error {
	var req TrainRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("cannot understand the requested json", err)
	}
	if req.TestPercent == 0 {
		req.TestPercent = s.defaultTestPercent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Train(req.TestPercent); err != nil {
		return toHTTPError(err)
	}
	if err := s.session.Evaluate(); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newMetricsResponse(s.session.Context()))
}

func (s *Server) evaluated() (*workflow.Context, error) {
	ctx := s.session.Context()
	if ctx.Stage() != workflow.StageEvaluated {
		return nil, errors.NewStateError("GetMetrics", ctx.Stage().String(), workflow.StageEvaluated.String())
	}
	return ctx, nil
}

func (s *Server) handleMetrics(c echo.Context) error {
	ctx, err := s.evaluated()
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newMetricsResponse(ctx))
}

func (s *Server) handleConfusionPNG(c echo.Context) error {
	ctx, err := s.evaluated()
	if err != nil {
		return toHTTPError(err)
	}
	p, err := plotting.ConfusionHeatmap(ctx.Confusion())
	if err != nil {
		return toHTTPError(err)
	}
	return writePNG(c, p)
}

func writePNG(c echo.Context, p *plot.Plot) error {
	var buf bytes.Buffer
	if err := plotting.WritePNG(&buf, p, plotting.DefaultWidth, plotting.DefaultHeight); err != nil {
		return toHTTPError(err)
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}
