package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepml/dataset"
	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// OneHotEncode はカテゴリ列を、観測されたカテゴリごとの 0/1 指示列に置き換える。
//
// 数値列はそのまま元の順序で先頭に残り、指示列はその後に元の列順で追加される。
// 指示列の名前は "<列名>_<カテゴリ>"、カテゴリは辞書順。欠損値の行は全ての
// 指示列が 0 になる。カテゴリ列がなければ入力をそのまま返すので、2回適用しても
// 結果は変わらない。
func OneHotEncode(d *dataset.Dataset) (*dataset.Dataset, error) {
	var numeric, indicators []*dataset.Column
	encoded := false

	for _, c := range d.Columns() {
		if c.Kind().IsNumeric() {
			numeric = append(numeric, c)
			continue
		}
		encoded = true
		indicators = append(indicators, indicatorColumns(c)...)
	}
	if !encoded {
		return d, nil
	}

	out, err := dataset.New(append(numeric, indicators...)...)
	if err != nil {
		return nil, errors.Wrap(err, "one-hot encoding produced conflicting column names")
	}
	return out, nil
}

// Categories は列に現れるカテゴリを辞書順で返す（欠損値を除く）
func Categories(c *dataset.Column) []string {
	seen := make(map[string]bool)
	for i := 0; i < c.Len(); i++ {
		if label, ok := c.Label(i); ok {
			seen[label] = true
		}
	}
	categories := make([]string, 0, len(seen))
	for label := range seen {
		categories = append(categories, label)
	}
	sort.Strings(categories)
	return categories
}

func indicatorColumns(c *dataset.Column) []*dataset.Column {
	categories := Categories(c)
	position := make(map[string]int, len(categories))
	values := make([][]float64, len(categories))
	for k, label := range categories {
		position[label] = k
		values[k] = make([]float64, c.Len())
	}
	for i := 0; i < c.Len(); i++ {
		if label, ok := c.Label(i); ok {
			values[position[label]][i] = 1
		}
	}

	out := make([]*dataset.Column, len(categories))
	for k, label := range categories {
		out[k] = dataset.NewNumericColumn(fmt.Sprintf("%s_%s", c.Name(), label), dataset.KindInteger, values[k])
	}
	return out
}

// FeatureSet は学習に使う特徴量行列 X とラベルベクトル y
type FeatureSet struct {
	X            *mat.Dense
	Y            *mat.VecDense
	FeatureNames []string
	Target       string
}

// Shape は X の (行数, 特徴量数) を返す
func (f *FeatureSet) Shape() (int, int) {
	return f.X.Dims()
}

// SplitXY はエンコード済みのデータセットから目的変数を分離する。
// 全ての列が数値で、欠損値や無限大を含まないことを要求する。
func SplitXY(d *dataset.Dataset, target string) (*FeatureSet, error) {
	const op = "SplitXY"

	targetCol, ok := d.Column(target)
	if !ok {
		return nil, errors.NewValidationError("target", "no such column", target)
	}
	if !targetCol.Kind().IsNumeric() {
		return nil, errors.NewValidationError("target", "target column must be numeric", targetCol.Kind().String())
	}

	n := d.NRows()
	if n == 0 {
		return nil, errors.NewDataError(op, "dataset has no rows")
	}

	var features []*dataset.Column
	for _, c := range d.Columns() {
		if c.Name() == target {
			continue
		}
		if !c.Kind().IsNumeric() {
			return nil, errors.NewDataError(op, fmt.Sprintf("column '%s' is not numeric; encode it first", c.Name()))
		}
		features = append(features, c)
	}
	if len(features) == 0 {
		return nil, errors.NewDataError(op, "no feature columns remain after removing the target")
	}

	for _, c := range append([]*dataset.Column{targetCol}, features...) {
		if missing := c.NullCount(); missing > 0 {
			return nil, errors.NewDataError(op, fmt.Sprintf("column '%s' still has %d missing values", c.Name(), missing))
		}
		for _, v := range c.Floats() {
			if math.IsInf(v, 0) {
				return nil, errors.NewDataError(op, fmt.Sprintf("column '%s' contains infinite values", c.Name()))
			}
		}
	}

	X := mat.NewDense(n, len(features), nil)
	names := make([]string, len(features))
	for j, c := range features {
		names[j] = c.Name()
		for i := 0; i < n; i++ {
			X.Set(i, j, c.Float(i))
		}
	}
	y := mat.NewVecDense(n, targetCol.Floats())

	return &FeatureSet{X: X, Y: y, FeatureNames: names, Target: target}, nil
}

// BuildFeatures は ID 列を除外し、カテゴリ列をエンコードしてから X と y を作る。
// エンコード済みのデータセットも返す。
func BuildFeatures(d *dataset.Dataset, target, idColumn string) (*dataset.Dataset, *FeatureSet, error) {
	if idColumn != "" {
		if idColumn == target {
			return nil, nil, errors.NewValidationError("id_column", "ID column must differ from the target", idColumn)
		}
		var err error
		if d, err = d.DropColumns(idColumn); err != nil {
			return nil, nil, err
		}
	}

	encoded, err := OneHotEncode(d)
	if err != nil {
		return nil, nil, err
	}
	features, err := SplitXY(encoded, target)
	if err != nil {
		return nil, nil, err
	}
	return encoded, features, nil
}
