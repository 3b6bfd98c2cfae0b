package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/stepml/pkg/errors"
	"github.com/YuminosukeSato/stepml/workflow"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// customersCSV has 20 rows, two missing ages and a binary target.
func customersCSV() string {
	cities := []string{"Madrid", "Sevilla", "Valencia"}
	var b strings.Builder
	b.WriteString("id,age,city,target\n")
	for i := 0; i < 20; i++ {
		age := fmt.Sprint(20 + 2*i)
		if i == 3 || i == 11 {
			age = ""
		}
		fmt.Fprintf(&b, "%d,%s,%s,%d\n", i+1, age, cities[i%3], i%2)
	}
	return b.String()
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	opts := workflow.DefaultOptions()
	opts.RandomState = 3
	return New(workflow.NewSession(opts), WithDefaultTestPercent(25))
}

func upload(t *testing.T, s *Server, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/dataset", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestWorkflowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec := upload(t, s, "customers.csv", customersCSV())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ds := decode[DatasetResponse](t, rec)
	assert.Equal(t, "customers.csv", ds.Source)
	assert.Equal(t, 20, ds.Rows)
	assert.Len(t, ds.Columns, 4)
	assert.Len(t, ds.Head, previewRows)
	assert.Equal(t, workflow.StageDataLoaded, ds.Stage)

	rec = do(t, s, http.MethodPost, "/columns", ColumnsRequest{IDColumn: "id", Target: "target"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	nulls := decode[NullsResponse](t, rec)
	assert.Equal(t, 4, nulls.TotalColumns)
	assert.Equal(t, 1, nulls.ColumnsWithNulls)
	assert.Equal(t, 2, nulls.PerColumn["age"])

	rec = do(t, s, http.MethodGet, "/nulls", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/nulls", NullsRequest{Strategy: "drop"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	nulls = decode[NullsResponse](t, rec)
	assert.Equal(t, 18, nulls.Rows)
	require.NotNil(t, nulls.Remaining)
	assert.Zero(t, nulls.Remaining.ColumnsWithNulls)
	assert.True(t, nulls.Flags.NullsHandled)

	rec = do(t, s, http.MethodPost, "/encode", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	features := decode[FeaturesResponse](t, rec)
	assert.Equal(t, [2]int{18, 4}, features.XShape)
	assert.Equal(t, [1]int{18}, features.YShape)
	assert.Equal(t, []string{"age", "city_Madrid", "city_Sevilla", "city_Valencia"}, features.FeatureNames)

	rec = do(t, s, http.MethodGet, "/correlation", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	corr := decode[CorrelationResponse](t, rec)
	require.Len(t, corr.Matrix, 4)
	require.NotNil(t, corr.Matrix[0][0])
	assert.InDelta(t, 1.0, *corr.Matrix[0][0], 1e-12)

	rec = do(t, s, http.MethodGet, "/correlation.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))

	// No test_percent: the configured default of 25 applies.
	rec = do(t, s, http.MethodPost, "/train", TrainRequest{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m := decode[MetricsResponse](t, rec)
	assert.Equal(t, 25, m.TestPercent)
	assert.Equal(t, 5, m.TestRows)
	assert.Equal(t, 13, m.TrainRows)
	assert.True(t, strings.HasSuffix(m.AccuracyPercent, "%"))
	assert.Equal(t, workflow.StageEvaluated, m.Stage)

	total := 0
	for _, row := range m.Confusion {
		for _, v := range row {
			total += v
		}
	}
	assert.Equal(t, 5, total)

	rec = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, m.Accuracy, decode[MetricsResponse](t, rec).Accuracy)

	rec = do(t, s, http.MethodGet, "/confusion.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))

	rec = do(t, s, http.MethodGet, "/state", nil)
	state := decode[StateResponse](t, rec)
	assert.Equal(t, workflow.Flags{DataLoaded: true, TargetSet: true, NullsHandled: true, Preprocessed: true, ModelTrained: true}, state.Flags)

	rec = do(t, s, http.MethodDelete, "/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workflow.StageEmpty, decode[StateResponse](t, rec).Stage)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(t *testing.T, s *Server)
		request  func(t *testing.T, s *Server) *httptest.ResponseRecorder
		status   int
		category errors.Category
	}{
		{
			name:     "step before upload",
			request:  func(t *testing.T, s *Server) *httptest.ResponseRecorder { return do(t, s, http.MethodPost, "/encode", nil) },
			status:   http.StatusConflict,
			category: errors.CategoryState,
		},
		{
			name:     "metrics before training",
			request:  func(t *testing.T, s *Server) *httptest.ResponseRecorder { return do(t, s, http.MethodGet, "/metrics", nil) },
			status:   http.StatusConflict,
			category: errors.CategoryState,
		},
		{
			name: "malformed csv",
			request: func(t *testing.T, s *Server) *httptest.ResponseRecorder {
				return upload(t, s, "bad.csv", "a,b\n1,2,3\n")
			},
			status:   http.StatusBadRequest,
			category: errors.CategoryInput,
		},
		{
			name: "unknown target",
			prepare: func(t *testing.T, s *Server) {
				require.Equal(t, http.StatusCreated, upload(t, s, "c.csv", customersCSV()).Code)
			},
			request: func(t *testing.T, s *Server) *httptest.ResponseRecorder {
				return do(t, s, http.MethodPost, "/columns", ColumnsRequest{Target: "label"})
			},
			status:   http.StatusBadRequest,
			category: errors.CategoryValidation,
		},
		{
			name: "unknown null strategy",
			request: func(t *testing.T, s *Server) *httptest.ResponseRecorder {
				return do(t, s, http.MethodPost, "/nulls", NullsRequest{Strategy: "median"})
			},
			status:   http.StatusBadRequest,
			category: errors.CategoryValidation,
		},
		{
			name: "test percent out of range",
			prepare: func(t *testing.T, s *Server) {
				require.Equal(t, http.StatusCreated, upload(t, s, "c.csv", customersCSV()).Code)
				require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/columns", ColumnsRequest{IDColumn: "id", Target: "target"}).Code)
				require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/nulls", NullsRequest{Strategy: "mean"}).Code)
				require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/encode", nil).Code)
			},
			request: func(t *testing.T, s *Server) *httptest.ResponseRecorder {
				return do(t, s, http.MethodPost, "/train", TrainRequest{TestPercent: 60})
			},
			status:   http.StatusBadRequest,
			category: errors.CategoryValidation,
		},
		{
			name: "single class target",
			prepare: func(t *testing.T, s *Server) {
				csv := "x,target\n1,1\n2,1\n3,1\n4,1\n5,1\n6,1\n7,1\n8,1\n"
				require.Equal(t, http.StatusCreated, upload(t, s, "one.csv", csv).Code)
				require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/columns", ColumnsRequest{Target: "target"}).Code)
				require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/encode", nil).Code)
			},
			request: func(t *testing.T, s *Server) *httptest.ResponseRecorder {
				return do(t, s, http.MethodPost, "/train", TrainRequest{TestPercent: 30})
			},
			status:   http.StatusUnprocessableEntity,
			category: errors.CategoryData,
		},
		{
			name: "infinite feature value",
			prepare: func(t *testing.T, s *Server) {
				csv := "x,target\n1,0\ninf,1\n3,0\n4,1\n5,0\n6,1\n"
				require.Equal(t, http.StatusCreated, upload(t, s, "inf.csv", csv).Code)
				require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/columns", ColumnsRequest{Target: "target"}).Code)
			},
			request: func(t *testing.T, s *Server) *httptest.ResponseRecorder {
				return do(t, s, http.MethodPost, "/encode", nil)
			},
			status:   http.StatusUnprocessableEntity,
			category: errors.CategoryData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			if tt.prepare != nil {
				tt.prepare(t, s)
			}
			rec := tt.request(t, s)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.category.String(), resp.Message.Type)
			assert.NotEmpty(t, resp.Message.Reason)
		})
	}
}

func TestCategoricalTargetHaltsSession(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, upload(t, s, "c.csv", customersCSV()).Code)

	rec := do(t, s, http.MethodPost, "/columns", ColumnsRequest{Target: "city"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	state := decode[StateResponse](t, do(t, s, http.MethodGet, "/state", nil))
	assert.Equal(t, workflow.StageHalted, state.Stage)
	assert.Contains(t, state.Error, "numeric")

	// Only a new upload gets the session going again.
	rec = do(t, s, http.MethodPost, "/columns", ColumnsRequest{Target: "target"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, http.StatusCreated, upload(t, s, "c.csv", customersCSV()).Code)
}

func TestUploadRequiresFileField(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/dataset", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusCode(errors.CategoryInput))
	assert.Equal(t, http.StatusBadRequest, StatusCode(errors.CategoryValidation))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusCode(errors.CategoryData))
	assert.Equal(t, http.StatusConflict, StatusCode(errors.CategoryState))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.CategoryInternal))
}
