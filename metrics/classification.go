package metrics

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// columnValues は n×1 の行列（*mat.VecDense を含む）を値のスライスに変換する
func columnValues(op string, m mat.Matrix) ([]float64, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "empty vector")
	}
	r, c := m.Dims()
	if r == 0 {
		return nil, errors.NewValueError(op, "empty vector")
	}
	if c != 1 {
		return nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	return mat.Col(nil, 0, m), nil
}

func pairedValues(op string, yTrue, yPred mat.Matrix) ([]float64, []float64, error) {
	t, err := columnValues(op, yTrue)
	if err != nil {
		return nil, nil, err
	}
	p, err := columnValues(op, yPred)
	if err != nil {
		return nil, nil, err
	}
	if len(t) != len(p) {
		return nil, nil, errors.NewDimensionError(op, len(t), len(p), 0)
	}
	return t, p, nil
}

// AccuracyScore は正解率（予測ラベルが正解と一致した割合、0〜1）を計算する
func AccuracyScore(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := pairedValues("AccuracyScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(t)), nil
}

// FormatPercent は正解率を小数点以下2桁のパーセント表記にする（0.8333 → "83.33%"）
func FormatPercent(accuracy float64) string {
	return fmt.Sprintf("%.2f%%", accuracy*100)
}

// ConfusionMatrix は混同行列。行が正解ラベル、列が予測ラベル。
type ConfusionMatrix struct {
	// Labels は正解と予測に現れたラベルの和集合（昇順）
	Labels []float64
	// Counts は len(Labels)×len(Labels) の件数行列
	Counts *mat.Dense
}

// NewConfusionMatrix は正解と予測から混同行列を作る
func NewConfusionMatrix(yTrue, yPred mat.Matrix) (*ConfusionMatrix, error) {
	t, p, err := pairedValues("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}

	seen := make(map[float64]bool)
	var labels []float64
	for _, v := range append(append([]float64{}, t...), p...) {
		if !seen[v] {
			seen[v] = true
			labels = append(labels, v)
		}
	}
	sort.Float64s(labels)

	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	counts := mat.NewDense(len(labels), len(labels), nil)
	for i := range t {
		r, c := index[t[i]], index[p[i]]
		counts.Set(r, c, counts.At(r, c)+1)
	}
	return &ConfusionMatrix{Labels: labels, Counts: counts}, nil
}

// Count は正解 trueLabel を predLabel と予測した件数を返す
func (cm *ConfusionMatrix) Count(trueLabel, predLabel float64) int {
	r, c := cm.indexOf(trueLabel), cm.indexOf(predLabel)
	if r < 0 || c < 0 {
		return 0
	}
	return int(cm.Counts.At(r, c))
}

func (cm *ConfusionMatrix) indexOf(label float64) int {
	i := sort.SearchFloat64s(cm.Labels, label)
	if i < len(cm.Labels) && cm.Labels[i] == label {
		return i
	}
	return -1
}

// Total は全サンプル数を返す
func (cm *ConfusionMatrix) Total() int {
	return int(mat.Sum(cm.Counts))
}

// Accuracy は対角成分の割合を返す
func (cm *ConfusionMatrix) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	return mat.Trace(cm.Counts) / float64(total)
}

// Rows は件数を整数の二次元スライスで返す（JSON 出力用）
func (cm *ConfusionMatrix) Rows() [][]int {
	n := len(cm.Labels)
	out := make([][]int, n)
	for i := range out {
		out[i] = make([]int, n)
		for j := range out[i] {
			out[i][j] = int(cm.Counts.At(i, j))
		}
	}
	return out
}

// LabelNames はラベルを表示用の文字列にする
func (cm *ConfusionMatrix) LabelNames() []string {
	out := make([]string, len(cm.Labels))
	for i, l := range cm.Labels {
		out[i] = FormatLabel(l)
	}
	return out
}

// FormatLabel は整数値のラベルを小数点なしで表示する
func FormatLabel(v float64) string {
	return fmt.Sprintf("%g", v)
}

// String は端末表示用の表を返す
func (cm *ConfusionMatrix) String() string {
	names := cm.LabelNames()
	width := len("true\\pred")
	for _, n := range names {
		if len(n) > width {
			width = len(n)
		}
	}
	for _, row := range cm.Rows() {
		for _, v := range row {
			if w := len(fmt.Sprint(v)); w > width {
				width = w
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s", width, "true\\pred")
	for _, n := range names {
		fmt.Fprintf(&b, " %*s", width, n)
	}
	b.WriteByte('\n')
	for i, row := range cm.Rows() {
		fmt.Fprintf(&b, "%*s", width, names[i])
		for _, v := range row {
			fmt.Fprintf(&b, " %*d", width, v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
