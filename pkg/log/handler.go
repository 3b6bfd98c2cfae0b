package log

import (
	"fmt"

	cerrors "github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// emit writes msg with the key/value fields. A nil event (level disabled) is a no-op.
func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	e.Fields(normalizeFields(fields)).Msg(msg)
}

// withError attaches err, its workflow category and, when available, the
// stack trace recorded by cockroachdb/errors.
func withError(e *zerolog.Event, err error) *zerolog.Event {
	if e == nil {
		return nil
	}
	e = e.Err(err).Str(ErrorTypeKey, errors.Classify(err).String())
	var m zerolog.LogObjectMarshaler
	if cerrors.As(err, &m) {
		e = e.Object("details", m)
	}
	if st := extractStacktrace(err); st != "" {
		e = e.Str(StacktraceKey, st)
	}
	return e
}

// normalizeFields turns alternating key/value pairs into a zerolog field map.
// Non-string keys are formatted with %v; a dangling key gets "!MISSING".
func normalizeFields(fields []any) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		if i+1 >= len(fields) {
			out[key] = "!MISSING"
			break
		}
		value := fields[i+1]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		out[key] = value
	}
	return out
}

func extractStacktrace(err error) string {
	for e := err; e != nil; e = cerrors.UnwrapOnce(e) {
		if details := cerrors.GetSafeDetails(e).SafeDetails; len(details) > 0 {
			return details[0]
		}
	}
	return ""
}
