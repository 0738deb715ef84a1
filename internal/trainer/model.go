package trainer

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// 模型存档的zip成员名称
const (
	memberW0   = "w0.npy"
	memberB0   = "b0.npy"
	memberW1   = "w1.npy"
	memberB1   = "b1.npy"
	memberMeta = "meta.json"
)

// predictBatchSize 预测时的前向批次大小
const predictBatchSize = 100

// Model 训练完成的网络参数
// 两层权重加偏置，外加类别名称表；只读，预测不会修改参数
type Model struct {
	W0     *tensor.Dense // 输入层到隐层权重 (输入维×隐层维)
	B0     *tensor.Dense // 隐层偏置 (1×隐层维)
	W1     *tensor.Dense // 隐层到输出层权重 (隐层维×类别数)
	B1     *tensor.Dense // 输出层偏置 (1×类别数)
	Labels []string      // 类别名称表
}

// modelMeta meta.json成员的内容
type modelMeta struct {
	Labels     []string `json:"labels"`
	InputSize  int      `json:"input_size"`
	HiddenSize int      `json:"hidden_size"`
	NumClasses int      `json:"num_classes"`
}

// InputSize 返回模型接受的特征维数
func (m *Model) InputSize() int {
	return m.W0.Shape()[0]
}

// HiddenSize 返回隐层宽度
func (m *Model) HiddenSize() int {
	return m.W0.Shape()[1]
}

// NumClasses 返回类别数量
func (m *Model) NumClasses() int {
	return m.W1.Shape()[1]
}

// Predict 对特征矩阵逐批前向传播，返回每行的预测类别下标
func (m *Model) Predict(X *mat.Dense) ([]int, error) {
	n, d := X.Dims()
	if n == 0 {
		return nil, fmt.Errorf("no samples to predict")
	}
	if d != m.InputSize() {
		return nil, fmt.Errorf("input has %d features but model expects %d", d, m.InputSize())
	}

	k := m.NumClasses()
	preds := make([]int, 0, n)

	for start := 0; start < n; start += predictBatchSize {
		end := start + predictBatchSize
		if end > n {
			end = n
		}
		rows := end - start

		backing := make([]float64, rows*d)
		for i := 0; i < rows; i++ {
			copy(backing[i*d:(i+1)*d], X.RawRowView(start+i))
		}
		xT := tensor.New(tensor.WithShape(rows, d), tensor.WithBacking(backing))

		probs, err := m.forward(xT, rows)
		if err != nil {
			return nil, err
		}

		// 逐行取最大概率的类别
		for r := 0; r < rows; r++ {
			base := r * k
			best := 0
			for c := 1; c < k; c++ {
				if probs[base+c] > probs[base+best] {
					best = c
				}
			}
			preds = append(preds, best)
		}
	}

	return preds, nil
}

// forward 在一个新的表达式图上执行一批前向传播，返回按行排列的类别概率
func (m *Model) forward(xT *tensor.Dense, rows int) ([]float64, error) {
	d := m.InputSize()
	g := gorgonia.NewGraph()

	x := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(rows, d), gorgonia.WithName("x"))
	w0 := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithName("w0"), gorgonia.WithValue(m.W0))
	b0 := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithName("b0"), gorgonia.WithValue(m.B0))
	w1 := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithName("w1"), gorgonia.WithValue(m.W1))
	b1 := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithName("b1"), gorgonia.WithValue(m.B1))

	prob, err := buildNetwork(x, w0, b0, w1, b1)
	if err != nil {
		return nil, err
	}

	var probVal gorgonia.Value
	gorgonia.Read(prob, &probVal)

	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()

	if err := gorgonia.Let(x, xT); err != nil {
		return nil, fmt.Errorf("failed to bind prediction input: %v", err)
	}
	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("failed to run forward pass: %v", err)
	}

	probs, ok := probVal.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("unexpected probability data type %T", probVal.Data())
	}
	return probs, nil
}

// Save 把模型参数写成zip存档
// 四个权重张量各占一个npy成员，类别表和维度信息放在meta.json里
func (m *Model) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create model directory: %v", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	weights := []struct {
		name string
		t    *tensor.Dense
	}{
		{memberW0, m.W0},
		{memberB0, m.B0},
		{memberW1, m.W1},
		{memberB1, m.B1},
	}
	for _, wt := range weights {
		w, err := zw.Create(wt.name)
		if err != nil {
			return fmt.Errorf("failed to create %s member: %v", wt.name, err)
		}
		if err := wt.t.WriteNpy(w); err != nil {
			return fmt.Errorf("failed to write %s: %v", wt.name, err)
		}
	}

	meta := modelMeta{
		Labels:     m.Labels,
		InputSize:  m.InputSize(),
		HiddenSize: m.HiddenSize(),
		NumClasses: m.NumClasses(),
	}
	w, err := zw.Create(memberMeta)
	if err != nil {
		return fmt.Errorf("failed to create %s member: %v", memberMeta, err)
	}
	if err := json.NewEncoder(w).Encode(meta); err != nil {
		return fmt.Errorf("failed to write model metadata: %v", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize model file: %v", err)
	}
	return nil
}

// LoadModel 从zip存档恢复模型并校验形状
func LoadModel(path string) (*Model, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %v", err)
	}
	defer zr.Close()

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		members[f.Name] = f
	}

	m := &Model{}
	if m.W0, err = readTensorMember(members, memberW0); err != nil {
		return nil, err
	}
	if m.B0, err = readTensorMember(members, memberB0); err != nil {
		return nil, err
	}
	if m.W1, err = readTensorMember(members, memberW1); err != nil {
		return nil, err
	}
	if m.B1, err = readTensorMember(members, memberB1); err != nil {
		return nil, err
	}

	meta, err := readMetaMember(members)
	if err != nil {
		return nil, err
	}
	m.Labels = meta.Labels

	if err := m.validateShapes(meta); err != nil {
		return nil, fmt.Errorf("model file is inconsistent: %v", err)
	}
	return m, nil
}

// validateShapes 对照元数据校验权重形状
func (m *Model) validateShapes(meta modelMeta) error {
	if len(m.Labels) == 0 {
		return fmt.Errorf("model has no labels")
	}
	if meta.NumClasses < 2 {
		return fmt.Errorf("model must have at least 2 classes, got %d", meta.NumClasses)
	}
	if len(m.Labels) != meta.NumClasses {
		return fmt.Errorf("label count %d does not match class count %d", len(m.Labels), meta.NumClasses)
	}

	checks := []struct {
		name string
		t    *tensor.Dense
		want []int
	}{
		{memberW0, m.W0, []int{meta.InputSize, meta.HiddenSize}},
		{memberB0, m.B0, []int{1, meta.HiddenSize}},
		{memberW1, m.W1, []int{meta.HiddenSize, meta.NumClasses}},
		{memberB1, m.B1, []int{1, meta.NumClasses}},
	}
	for _, c := range checks {
		shape := c.t.Shape()
		if len(shape) != 2 || shape[0] != c.want[0] || shape[1] != c.want[1] {
			return fmt.Errorf("%s has shape %v, want %v", c.name, shape, c.want)
		}
	}
	return nil
}

// readTensorMember 从zip成员解码一个权重张量
func readTensorMember(members map[string]*zip.File, name string) (*tensor.Dense, error) {
	rc, err := openModelMember(members, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var t tensor.Dense
	if err := t.ReadNpy(rc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v", name, err)
	}
	return &t, nil
}

// readMetaMember 解码meta.json成员
func readMetaMember(members map[string]*zip.File) (modelMeta, error) {
	var meta modelMeta

	rc, err := openModelMember(members, memberMeta)
	if err != nil {
		return meta, err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(&meta); err != nil {
		return meta, fmt.Errorf("failed to decode %s: %v", memberMeta, err)
	}
	return meta, nil
}

func openModelMember(members map[string]*zip.File, name string) (io.ReadCloser, error) {
	f, ok := members[name]
	if !ok {
		return nil, fmt.Errorf("model file is missing member %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open member %s: %v", name, err)
	}
	return rc, nil
}
