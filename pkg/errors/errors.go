// Package errors はワークフロー全体のエラーハンドリングと警告システムを提供します。
// 各ステップのエラーは InputError / ValidationError / DataError / StateError の
// いずれかに分類され、オペレータに一つのメッセージとして提示されます。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("stepml-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します。nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は最適化アルゴリズムが max_iter 以内に収束しなかった場合の警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ImputationWarning は平均値補完ができなかった列を示す警告です。
// 全ての値が欠損している数値列では平均が定義されないため、欠損値はそのまま残ります。
type ImputationWarning struct {
	Column  string
	Missing int
}

func (w *ImputationWarning) Error() string {
	return fmt.Sprintf("column '%s' has no observed values; %d missing values left in place", w.Column, w.Missing)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ImputationWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Int("missing", w.Missing).
		Str("type", "ImputationWarning")
}

// NewImputationWarning は新しいImputationWarningを作成します。
func NewImputationWarning(column string, missing int) *ImputationWarning {
	return &ImputationWarning{Column: column, Missing: missing}
}

// ===========================================================================
//
//	ワークフローのエラー分類
//
// ===========================================================================

// Category はオペレータに提示されるエラーの分類です。
type Category int

const (
	// CategoryInternal は分類不能なエラー（パニック等）
	CategoryInternal Category = iota
	// CategoryInput は読み込めないCSVなどの入力エラー
	CategoryInput
	// CategoryValidation はパラメータ検証エラー
	CategoryValidation
	// CategoryData は学習できないデータなどのエラー
	CategoryData
	// CategoryState は現在のステージでは実行できない操作
	CategoryState
)

func (c Category) String() string {
	switch c {
	case CategoryInput:
		return "InputError"
	case CategoryValidation:
		return "ValidationError"
	case CategoryData:
		return "DataError"
	case CategoryState:
		return "StateError"
	default:
		return "InternalError"
	}
}

// Classify はエラーチェーンを辿り、最初に見つかった分類を返します。
func Classify(err error) Category {
	var (
		inputErr      *InputError
		validationErr *ValidationError
		dataErr       *DataError
		fitErr        *FitError
		stateErr      *StateError
		dimErr        *DimensionError
		valueErr      *ValueError
	)
	switch {
	case err == nil:
		return CategoryInternal
	case errors.As(err, &inputErr):
		return CategoryInput
	case errors.As(err, &validationErr):
		return CategoryValidation
	case errors.As(err, &stateErr):
		return CategoryState
	case errors.As(err, &dataErr), errors.As(err, &fitErr),
		errors.As(err, &dimErr), errors.As(err, &valueErr):
		return CategoryData
	default:
		return CategoryInternal
	}
}

// InputError はCSVが読み込めない、または構文が不正な場合のエラーです。
type InputError struct {
	Source string
	Line   int // 0 は行番号不明
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	msg := fmt.Sprintf("stepml: cannot read %s: %s", e.Source, e.Reason)
	if e.Line > 0 {
		msg = fmt.Sprintf("stepml: cannot read %s (line %d): %s", e.Source, e.Line, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("source", e.Source).
		Int("line", e.Line).
		Str("reason", e.Reason).
		Str("type", "InputError")
}

// NewInputError は新しいInputErrorを作成し、スタックトレースを付与します。
func NewInputError(source, reason string, err error) error {
	return errors.WithStack(&InputError{Source: source, Reason: reason, Err: err})
}

// NewParseError は構文不正なCSVに対するInputErrorを作成します。
func NewParseError(source string, line int, reason string, err error) error {
	return errors.WithStack(&InputError{Source: source, Line: line, Reason: reason, Err: err})
}

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("stepml: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("stepml: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError はオペレータが指定したパラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stepml: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切な場合のエラーです（空ベクトルなど）。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("stepml: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// DataError はデータの内容が操作の前提を満たさない場合のエラーです。
type DataError struct {
	Op     string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("stepml: %s: %s", e.Op, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Str("type", "DataError")
}

// NewDataError は新しいDataErrorを作成し、スタックトレースを付与します。
func NewDataError(op, reason string) error {
	return errors.WithStack(&DataError{Op: op, Reason: reason})
}

// FitError はモデルの学習が開始できない場合のエラーです（クラス数不足、空の行列など）。
// 分類上は DataError として扱われます。
type FitError struct {
	ModelName string
	Reason    string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("stepml: %s.Fit: %s", e.ModelName, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FitError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("reason", e.Reason).
		Str("type", "FitError")
}

// NewFitError は新しいFitErrorを作成し、スタックトレースを付与します。
func NewFitError(modelName, reason string) error {
	return errors.WithStack(&FitError{ModelName: modelName, Reason: reason})
}

// StateError は現在のワークフローステージでは許可されない操作を示します。
type StateError struct {
	Op       string
	Stage    string
	Required string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("stepml: %s is not available in stage %s (requires %s)", e.Op, e.Stage, e.Required)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *StateError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("stage", e.Stage).
		Str("required", e.Required).
		Str("type", "StateError")
}

// NewStateError は新しいStateErrorを作成し、スタックトレースを付与します。
func NewStateError(op, stage, required string) error {
	return errors.WithStack(&StateError{Op: op, Stage: stage, Required: required})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)
