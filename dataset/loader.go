package dataset

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// missingMarkers are the cell values read as a missing value.
var missingMarkers = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

type loadConfig struct {
	source string
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithSource names the input in error messages (usually the file name).
func WithSource(name string) LoadOption {
	return func(c *loadConfig) {
		c.source = name
	}
}

// Load parses comma-separated UTF-8 text whose first row is the header.
// Column types are detected here and never re-derived: a column whose
// values all parse as integers (with nothing missing) is KindInteger, as
// floats KindFloat, otherwise KindCategorical.
func Load(r io.Reader, opts ...LoadOption) (*Dataset, error) {
	cfg := loadConfig{source: "csv input"}
	for _, opt := range opts {
		opt(&cfg)
	}

	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewParseError(cfg.source, 0, "empty input", errors.ErrEmptyData)
	}
	if err != nil {
		return nil, parseError(cfg.source, err)
	}
	if err := validateHeader(cfg.source, header); err != nil {
		return nil, err
	}

	raw := make([][]string, len(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(cfg.source, err)
		}
		for j, v := range record {
			raw[j] = append(raw[j], v)
		}
	}

	columns := make([]*Column, len(header))
	for j, name := range header {
		columns[j] = inferColumn(name, raw[j])
	}
	return New(columns...)
}

func validateHeader(source string, header []string) error {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			return errors.NewParseError(source, 1, "header column "+strconv.Itoa(i+1)+" has no name", nil)
		}
		if seen[name] {
			return errors.NewParseError(source, 1, "duplicate header name '"+name+"'", nil)
		}
		seen[name] = true
	}
	return nil
}

func parseError(source string, err error) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return errors.NewParseError(source, pe.Line, "malformed CSV", pe.Err)
	}
	return errors.NewInputError(source, "unreadable input", err)
}

func inferColumn(name string, values []string) *Column {
	isInt, isFloat := true, true
	observed := 0
	for _, v := range values {
		if missingMarkers[v] {
			continue
		}
		observed++
		s := strings.TrimSpace(v)
		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			isFloat = false
			break
		}
	}

	if !isFloat {
		valid := make([]bool, len(values))
		for i, v := range values {
			valid[i] = !missingMarkers[v]
		}
		return NewCategoricalColumn(name, values, valid)
	}

	// A missing value forces float64, as NaN has no integer representation.
	kind := KindFloat
	if isInt && observed > 0 && observed == len(values) {
		kind = KindInteger
	}
	numbers := make([]float64, len(values))
	for i, v := range values {
		if missingMarkers[v] {
			numbers[i] = math.NaN()
			continue
		}
		numbers[i], _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return NewNumericColumn(name, kind, numbers)
}
