package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Bundle 预处理产物
// 划分好的特征矩阵、标签向量和类别名称表，写入npz后不再变更
type Bundle struct {
	TrainData   *mat.Dense // 训练集特征矩阵
	TrainTarget []int64    // 训练集标签
	TestData    *mat.Dense // 测试集特征矩阵
	TestTarget  []int64    // 测试集标签
	Labels      []string   // 类别名称表，标签值是其中的下标
}

// NewBundle 按划分索引把特征矩阵和标签切成训练/测试两份
func NewBundle(X *mat.Dense, targets []int, split *SplitIndices, labels []string) (*Bundle, error) {
	n, _ := X.Dims()
	if len(targets) != n {
		return nil, fmt.Errorf("targets length %d does not match matrix rows %d", len(targets), n)
	}
	if split == nil {
		return nil, fmt.Errorf("split indices must not be nil")
	}
	if len(split.Train) == 0 || len(split.Test) == 0 {
		return nil, fmt.Errorf("split must leave samples in both subsets, got %d train / %d test",
			len(split.Train), len(split.Test))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels must not be empty")
	}
	for _, idx := range [][]int{split.Train, split.Test} {
		for _, i := range idx {
			if i < 0 || i >= n {
				return nil, fmt.Errorf("split index %d out of range [0, %d)", i, n)
			}
		}
	}

	b := &Bundle{
		TrainData:   takeRows(X, split.Train),
		TrainTarget: takeTargets(targets, split.Train),
		TestData:    takeRows(X, split.Test),
		TestTarget:  takeTargets(targets, split.Test),
		Labels:      labels,
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate 检查包内各数组的形状是否对齐
func (b *Bundle) Validate() error {
	if b.TrainData == nil || b.TestData == nil {
		return fmt.Errorf("bundle is missing feature matrices")
	}
	if len(b.Labels) == 0 {
		return fmt.Errorf("bundle has no labels")
	}

	trainRows, trainCols := b.TrainData.Dims()
	testRows, testCols := b.TestData.Dims()

	if trainRows != len(b.TrainTarget) {
		return fmt.Errorf("train data has %d rows but %d targets", trainRows, len(b.TrainTarget))
	}
	if testRows != len(b.TestTarget) {
		return fmt.Errorf("test data has %d rows but %d targets", testRows, len(b.TestTarget))
	}
	if trainCols != testCols {
		return fmt.Errorf("train and test feature widths differ: %d vs %d", trainCols, testCols)
	}

	// 标签值必须落在类别表范围内
	k := int64(len(b.Labels))
	for _, t := range b.TrainTarget {
		if t < 0 || t >= k {
			return fmt.Errorf("train target %d out of range [0, %d)", t, k)
		}
	}
	for _, t := range b.TestTarget {
		if t < 0 || t >= k {
			return fmt.Errorf("test target %d out of range [0, %d)", t, k)
		}
	}

	return nil
}

// NumFeatures 返回特征矩阵的列数
func (b *Bundle) NumFeatures() int {
	_, cols := b.TrainData.Dims()
	return cols
}

// NumClasses 返回类别数量
func (b *Bundle) NumClasses() int {
	return len(b.Labels)
}

// takeRows 按行下标抽取子矩阵
func takeRows(X *mat.Dense, idx []int) *mat.Dense {
	_, d := X.Dims()
	out := mat.NewDense(len(idx), d, nil)
	for i, r := range idx {
		out.SetRow(i, X.RawRowView(r))
	}
	return out
}

// takeTargets 按下标抽取标签并转成int64，与npy的整型数组对应
func takeTargets(targets []int, idx []int) []int64 {
	out := make([]int64, len(idx))
	for i, r := range idx {
		out[i] = int64(targets[r])
	}
	return out
}
