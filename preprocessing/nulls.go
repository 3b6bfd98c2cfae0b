package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/stepml/dataset"
	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// NullStrategy は欠損値の処理方法
type NullStrategy string

const (
	// StrategyDrop は欠損値を含む行を削除する
	StrategyDrop NullStrategy = "drop"
	// StrategyMean は数値列の欠損値を列平均で置き換える
	StrategyMean NullStrategy = "mean"
)

// ParseNullStrategy は文字列から NullStrategy を得る
func ParseNullStrategy(s string) (NullStrategy, error) {
	switch NullStrategy(s) {
	case StrategyDrop, StrategyMean:
		return NullStrategy(s), nil
	default:
		return "", errors.NewValidationError("null_strategy", "must be 'drop' or 'mean'", s)
	}
}

// NullReport は欠損値の集計結果
type NullReport struct {
	// TotalColumns はデータセットの列数
	TotalColumns int
	// ColumnsWithNulls は欠損値を1つ以上含む列の数
	ColumnsWithNulls int
	// PerColumn は列ごとの欠損数（欠損のない列も 0 で含む）
	PerColumn map[string]int
}

// HasNulls は欠損値が存在するかどうかを返す
func (r NullReport) HasNulls() bool {
	return r.ColumnsWithNulls > 0
}

// CountNulls は列数と欠損値を含む列の数を数える。データは変更しない。
func CountNulls(d *dataset.Dataset) NullReport {
	report := NullReport{
		TotalColumns: d.NCols(),
		PerColumn:    make(map[string]int, d.NCols()),
	}
	for _, c := range d.Columns() {
		n := c.NullCount()
		report.PerColumn[c.Name()] = n
		if n > 0 {
			report.ColumnsWithNulls++
		}
	}
	return report
}

// DropRowsWithNulls はいずれかの列に欠損値を含む行を全て削除する
func DropRowsWithNulls(d *dataset.Dataset) (*dataset.Dataset, error) {
	keep := make([]bool, d.NRows())
	columns := d.Columns()
	for i := range keep {
		keep[i] = true
		for _, c := range columns {
			if c.IsMissing(i) {
				keep[i] = false
				break
			}
		}
	}
	return d.FilterRows(keep)
}

// ImputeMean は数値列の欠損値を、その列の観測値の算術平均で置き換える。
// カテゴリ列の欠損値はそのまま残る。
//
// 全ての値が欠損している数値列は平均が定義できないため変更せず、
// ImputationWarning を errors.Warn に通知したうえで戻り値にも含める。
func ImputeMean(d *dataset.Dataset) (*dataset.Dataset, []error) {
	var warnings []error
	columns := d.Columns()
	out := make([]*dataset.Column, len(columns))

	for j, c := range columns {
		missing := c.NullCount()
		if !c.Kind().IsNumeric() || missing == 0 {
			out[j] = c
			continue
		}

		values := c.Floats()
		observed := make([]float64, 0, len(values)-missing)
		for _, v := range values {
			if !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			w := errors.NewImputationWarning(c.Name(), missing)
			errors.Warn(w)
			warnings = append(warnings, w)
			out[j] = c
			continue
		}

		mean := stat.Mean(observed, nil)
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = mean
			}
		}
		out[j] = dataset.NewNumericColumn(c.Name(), c.Kind(), values)
	}

	result, err := dataset.New(out...)
	if err != nil {
		// 列構成は入力と同一なので到達しない
		panic(err)
	}
	return result, warnings
}
