package trainer

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fyerfyer/newsgroup-classifier/internal/dataset"
	"github.com/sirupsen/logrus"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const (
	// OptimizerAdam 自适应矩估计优化器
	OptimizerAdam = "adam"
	// OptimizerSGD 朴素随机梯度下降
	OptimizerSGD = "sgd"
)

// Config 训练超参数
type Config struct {
	HiddenSize int     // 隐层神经元数量
	BatchSize  int     // 小批量大小
	Epochs     int     // 训练轮数
	LearnRate  float64 // 学习率
	L2         float64 // L2正则化系数
	Optimizer  string  // 优化器："adam"或"sgd"
	Seed       int64   // 随机种子，控制洗牌和权重初始化
}

// DefaultConfig 返回默认训练配置
func DefaultConfig() Config {
	return Config{
		HiddenSize: 5000,
		BatchSize:  100,
		Epochs:     5,
		LearnRate:  0.001,
		L2:         0.0001,
		Optimizer:  OptimizerAdam,
		Seed:       42,
	}
}

// Trainer 单隐层感知机训练器
// 网络结构固定为 输入→全连接→ReLU→全连接→softmax，
// 梯度计算和参数更新全部交给Gorgonia，这里只负责搭图和喂批次
type Trainer struct {
	config Config
	logger *logrus.Logger
}

// Option 训练器选项
type Option func(*Trainer)

// WithLogger 设置日志器
func WithLogger(logger *logrus.Logger) Option {
	return func(t *Trainer) {
		t.logger = logger
	}
}

// NewTrainer 创建训练器
func NewTrainer(config Config, opts ...Option) (*Trainer, error) {
	if config.HiddenSize < 1 {
		return nil, fmt.Errorf("hidden size must be at least 1, got %d", config.HiddenSize)
	}
	if config.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", config.BatchSize)
	}
	if config.Epochs < 1 {
		return nil, fmt.Errorf("epochs must be at least 1, got %d", config.Epochs)
	}
	if config.LearnRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %v", config.LearnRate)
	}
	if config.L2 < 0 {
		return nil, fmt.Errorf("l2 regularization must not be negative, got %v", config.L2)
	}
	if config.Optimizer != OptimizerAdam && config.Optimizer != OptimizerSGD {
		return nil, fmt.Errorf("unknown optimizer: %s", config.Optimizer)
	}

	t := &Trainer{
		config: config,
		logger: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Config 返回训练器的配置副本
func (t *Trainer) Config() Config {
	return t.config
}

// Train 在训练集上拟合网络，返回训练完成的模型
// 样本顺序用种子洗牌一次，之后按固定批次顺序迭代；
// 不足一个批次的尾部样本被丢弃
func (t *Trainer) Train(b *dataset.Bundle) (*Model, error) {
	if b == nil {
		return nil, fmt.Errorf("bundle must not be nil")
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bundle: %v", err)
	}

	n, d := b.TrainData.Dims()
	k := b.NumClasses()
	if k < 2 {
		return nil, fmt.Errorf("training needs at least 2 classes, got %d", k)
	}

	bs := t.config.BatchSize
	if bs > n {
		bs = n
	}
	batches := n / bs
	if dropped := n - batches*bs; dropped > 0 {
		t.logger.WithField("samples", dropped).Debug("Dropping tail samples that do not fill a batch")
	}

	t.logger.WithFields(logrus.Fields{
		"samples":     n,
		"features":    d,
		"classes":     k,
		"hidden_size": t.config.HiddenSize,
		"batch_size":  bs,
		"epochs":      t.config.Epochs,
		"optimizer":   t.config.Optimizer,
	}).Info("Starting training")

	rng := rand.New(rand.NewSource(t.config.Seed))

	// 洗牌后的特征张量和one-hot标签张量
	perm := rng.Perm(n)
	xBacking := make([]float64, n*d)
	yBacking := make([]float64, n*k)
	for i, src := range perm {
		copy(xBacking[i*d:(i+1)*d], b.TrainData.RawRowView(src))
		yBacking[i*k+int(b.TrainTarget[src])] = 1
	}
	xT := tensor.New(tensor.WithShape(n, d), tensor.WithBacking(xBacking))
	yT := tensor.New(tensor.WithShape(n, k), tensor.WithBacking(yBacking))

	// 权重用Glorot均匀分布初始化，偏置置零；
	// 初始化走训练器自己的随机源，种子相同则初始权重相同
	h := t.config.HiddenSize
	g := gorgonia.NewGraph()
	x := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(bs, d), gorgonia.WithName("x"))
	y := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(bs, k), gorgonia.WithName("y"))
	w0 := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithName("w0"), gorgonia.WithValue(glorotUniform(rng, d, h)))
	b0 := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithName("b0"), gorgonia.WithValue(zeroBias(h)))
	w1 := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithName("w1"), gorgonia.WithValue(glorotUniform(rng, h, k)))
	b1 := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithName("b1"), gorgonia.WithValue(zeroBias(k)))
	learnables := gorgonia.Nodes{w0, b0, w1, b1}

	prob, err := buildNetwork(x, w0, b0, w1, b1)
	if err != nil {
		return nil, err
	}
	loss, err := buildLoss(prob, y)
	if err != nil {
		return nil, err
	}

	var lossVal gorgonia.Value
	gorgonia.Read(loss, &lossVal)

	if _, err := gorgonia.Grad(loss, learnables...); err != nil {
		return nil, fmt.Errorf("failed to build gradients: %v", err)
	}

	vm := gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(learnables...))
	defer vm.Close()

	solver, err := newSolver(t.config)
	if err != nil {
		return nil, err
	}

	for epoch := 1; epoch <= t.config.Epochs; epoch++ {
		epochLoss := 0.0

		for batch := 0; batch < batches; batch++ {
			start := batch * bs
			end := start + bs

			xBatch, err := sliceRows(xT, start, end, bs, d)
			if err != nil {
				return nil, err
			}
			yBatch, err := sliceRows(yT, start, end, bs, k)
			if err != nil {
				return nil, err
			}

			if err := gorgonia.Let(x, xBatch); err != nil {
				return nil, fmt.Errorf("failed to bind input batch: %v", err)
			}
			if err := gorgonia.Let(y, yBatch); err != nil {
				return nil, fmt.Errorf("failed to bind target batch: %v", err)
			}

			if err := vm.RunAll(); err != nil {
				return nil, fmt.Errorf("failed to run training step: %v", err)
			}

			epochLoss += lossVal.Data().(float64)

			if err := solver.Step(gorgonia.NodesToValueGrads(learnables)); err != nil {
				return nil, fmt.Errorf("failed to apply gradients: %v", err)
			}
			vm.Reset()
		}

		t.logger.WithFields(logrus.Fields{
			"epoch": epoch,
			"loss":  epochLoss / float64(batches),
		}).Info("Epoch complete")
	}

	model := &Model{
		W0:     cloneDense(w0),
		B0:     cloneDense(b0),
		W1:     cloneDense(w1),
		B1:     cloneDense(b1),
		Labels: append([]string(nil), b.Labels...),
	}
	return model, nil
}

// buildNetwork 在表达式图上搭建前向通路：输入→隐层ReLU→输出softmax
// 偏置沿批次维广播
func buildNetwork(x, w0, b0, w1, b1 *gorgonia.Node) (*gorgonia.Node, error) {
	z0, err := gorgonia.Mul(x, w0)
	if err != nil {
		return nil, fmt.Errorf("failed to build hidden layer: %v", err)
	}
	z0, err = gorgonia.BroadcastAdd(z0, b0, nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("failed to add hidden bias: %v", err)
	}
	h0, err := gorgonia.Rectify(z0)
	if err != nil {
		return nil, fmt.Errorf("failed to build activation: %v", err)
	}

	z1, err := gorgonia.Mul(h0, w1)
	if err != nil {
		return nil, fmt.Errorf("failed to build output layer: %v", err)
	}
	z1, err = gorgonia.BroadcastAdd(z1, b1, nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("failed to add output bias: %v", err)
	}

	prob, err := gorgonia.SoftMax(z1)
	if err != nil {
		return nil, fmt.Errorf("failed to build softmax: %v", err)
	}
	return prob, nil
}

// buildLoss 交叉熵损失：-mean(Σ_classes y·log(prob))
func buildLoss(prob, y *gorgonia.Node) (*gorgonia.Node, error) {
	// 概率加极小常数，防止log(0)
	stable, err := gorgonia.Add(prob, gorgonia.NewConstant(1e-10))
	if err != nil {
		return nil, fmt.Errorf("failed to stabilize probabilities: %v", err)
	}
	logProb, err := gorgonia.Log(stable)
	if err != nil {
		return nil, fmt.Errorf("failed to build log probabilities: %v", err)
	}
	ce, err := gorgonia.HadamardProd(y, logProb)
	if err != nil {
		return nil, fmt.Errorf("failed to build cross entropy: %v", err)
	}
	rowLoss, err := gorgonia.Sum(ce, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to sum over classes: %v", err)
	}
	meanLoss, err := gorgonia.Mean(rowLoss)
	if err != nil {
		return nil, fmt.Errorf("failed to average batch loss: %v", err)
	}

	loss, err := gorgonia.Neg(meanLoss)
	if err != nil {
		return nil, fmt.Errorf("failed to negate loss: %v", err)
	}
	return loss, nil
}

// newSolver 根据配置构造优化器
// 损失已经是批内均值，这里不再按批次大小缩放梯度
func newSolver(cfg Config) (gorgonia.Solver, error) {
	opts := []gorgonia.SolverOpt{
		gorgonia.WithLearnRate(cfg.LearnRate),
	}
	if cfg.L2 > 0 {
		opts = append(opts, gorgonia.WithL2Reg(cfg.L2))
	}

	switch cfg.Optimizer {
	case OptimizerAdam:
		return gorgonia.NewAdamSolver(opts...), nil
	case OptimizerSGD:
		return gorgonia.NewVanillaSolver(opts...), nil
	default:
		return nil, fmt.Errorf("unknown optimizer: %s", cfg.Optimizer)
	}
}

// sliceRows 从张量中切出[start,end)的行并整形成(rows×cols)
// 范围切片在单行时会被降维，必须重新整形
func sliceRows(t *tensor.Dense, start, end, rows, cols int) (*tensor.Dense, error) {
	view, err := t.Slice(tensor.S(start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to slice batch [%d:%d]: %v", start, end, err)
	}
	dense, ok := view.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("unexpected tensor view type %T", view)
	}
	if err := dense.Reshape(rows, cols); err != nil {
		return nil, fmt.Errorf("failed to reshape batch: %v", err)
	}
	return dense, nil
}

// glorotUniform 按Glorot均匀分布生成权重张量
// 上下界为±sqrt(6/(fanIn+fanOut))
func glorotUniform(rng *rand.Rand, rows, cols int) *tensor.Dense {
	limit := math.Sqrt(6.0 / float64(rows+cols))
	backing := make([]float64, rows*cols)
	for i := range backing {
		backing[i] = (rng.Float64()*2 - 1) * limit
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}

// zeroBias 生成全零偏置张量，形状为1×cols以便广播
func zeroBias(cols int) *tensor.Dense {
	return tensor.New(tensor.WithShape(1, cols), tensor.WithBacking(make([]float64, cols)))
}

// cloneDense 取出节点当前值并复制，训练图销毁后模型仍然可用
func cloneDense(n *gorgonia.Node) *tensor.Dense {
	return n.Value().(*tensor.Dense).Clone().(*tensor.Dense)
}
