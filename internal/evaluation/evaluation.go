package evaluation

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
)

// ClassReport 单个类别的评估指标
type ClassReport struct {
	Label     string  // 类别名称
	Precision float64 // 精确率 tp/(tp+fp)
	Recall    float64 // 召回率 tp/(tp+fn)
	F1        float64 // 精确率和召回率的调和平均
	Support   int     // 该类别的真实样本数
}

// Averages 一组平均指标
type Averages struct {
	Precision float64
	Recall    float64
	F1        float64
}

// Result 分类评估结果
// 所有指标都从混淆矩阵重新计算，准确率就是矩阵对角线之和除以样本总数
type Result struct {
	Accuracy  float64       // 总体准确率
	Confusion [][]int       // 混淆矩阵，Confusion[i][j]是真实类别i被预测为j的次数
	Classes   []ClassReport // 逐类别指标，与类别表同序
	Macro     Averages      // 宏平均（各类别简单平均）
	Weighted  Averages      // 按support加权的平均
	Total     int           // 测试样本总数
}

// Evaluate 对照真实标签评估预测结果
// 纯只读计算；某类别分母为零时对应指标记为0
func Evaluate(yTrue, yPred []int, labels []string) (*Result, error) {
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("no samples to evaluate")
	}
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("prediction count %d does not match truth count %d", len(yPred), len(yTrue))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels must not be empty")
	}

	k := len(labels)
	for i := range yTrue {
		if yTrue[i] < 0 || yTrue[i] >= k {
			return nil, fmt.Errorf("true label %d out of range [0, %d)", yTrue[i], k)
		}
		if yPred[i] < 0 || yPred[i] >= k {
			return nil, fmt.Errorf("predicted label %d out of range [0, %d)", yPred[i], k)
		}
	}

	// 混淆矩阵
	confusion := make([][]int, k)
	for i := range confusion {
		confusion[i] = make([]int, k)
	}
	for i := range yTrue {
		confusion[yTrue[i]][yPred[i]]++
	}

	total := len(yTrue)
	correct := 0
	for i := 0; i < k; i++ {
		correct += confusion[i][i]
	}

	result := &Result{
		Accuracy:  float64(correct) / float64(total),
		Confusion: confusion,
		Classes:   make([]ClassReport, k),
		Total:     total,
	}

	precisions := make([]float64, k)
	recalls := make([]float64, k)
	f1s := make([]float64, k)

	for c := 0; c < k; c++ {
		tp := confusion[c][c]

		predicted := 0 // 被预测为c的样本数（列和）
		support := 0   // 真实为c的样本数（行和）
		for j := 0; j < k; j++ {
			predicted += confusion[j][c]
			support += confusion[c][j]
		}

		var precision, recall, f1 float64
		if predicted > 0 {
			precision = float64(tp) / float64(predicted)
		}
		if support > 0 {
			recall = float64(tp) / float64(support)
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		result.Classes[c] = ClassReport{
			Label:     labels[c],
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   support,
		}

		precisions[c] = precision
		recalls[c] = recall
		f1s[c] = f1

		// 加权平均按support累加
		w := float64(support) / float64(total)
		result.Weighted.Precision += precision * w
		result.Weighted.Recall += recall * w
		result.Weighted.F1 += f1 * w
	}

	// 宏平均：各类别指标的简单平均
	result.Macro.Precision, _ = stats.Mean(precisions)
	result.Macro.Recall, _ = stats.Mean(recalls)
	result.Macro.F1, _ = stats.Mean(f1s)

	return result, nil
}

// Report 渲染分类评估报告表格
// 布局与scikit-learn的classification_report一致，结果可以逐行对照
func (r *Result) Report() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s  %9s  %9s  %9s\n\n", width, "", "precision", "recall", "f1-score", "support")

	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%*s  %9.2f  %9.2f  %9.2f  %9d\n",
			width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}

	fmt.Fprintf(&b, "\n%*s  %9s  %9s  %9.2f  %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	fmt.Fprintf(&b, "%*s  %9.2f  %9.2f  %9.2f  %9d\n",
		width, "macro avg", r.Macro.Precision, r.Macro.Recall, r.Macro.F1, r.Total)
	fmt.Fprintf(&b, "%*s  %9.2f  %9.2f  %9.2f  %9d\n",
		width, "weighted avg", r.Weighted.Precision, r.Weighted.Recall, r.Weighted.F1, r.Total)

	return b.String()
}
