package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyerfyer/newsgroup-classifier/internal/corpus"
	"github.com/fyerfyer/newsgroup-classifier/internal/dataset"
	"github.com/fyerfyer/newsgroup-classifier/internal/models"
	"github.com/fyerfyer/newsgroup-classifier/internal/repository"
	"github.com/fyerfyer/newsgroup-classifier/internal/vectorizer"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// PreprocessService 预处理服务
// 负责协调语料加载、TF-IDF向量化、分层划分和数据集落盘
type PreprocessService struct {
	vectorizer *vectorizer.Vectorizer   // TF-IDF向量化器
	repo       repository.RunRepository // 运行记录仓储，可为空
	testSize   float64                  // 测试集比例
	splitSeed  int64                    // 划分随机种子
	logger     *logrus.Logger           // 日志记录器
}

// PreprocessOption 预处理服务配置选项
type PreprocessOption func(*PreprocessService)

// NewPreprocessService 创建预处理服务实例
func NewPreprocessService(vec *vectorizer.Vectorizer, opts ...PreprocessOption) *PreprocessService {
	// 创建服务实例
	service := &PreprocessService{
		vectorizer: vec,
		testSize:   0.2,          // 默认测试集比例
		splitSeed:  42,           // 默认划分种子
		logger:     logrus.New(), // 默认日志记录器
	}

	// 应用配置选项
	for _, opt := range opts {
		opt(service)
	}

	return service
}

// WithTestSize 设置测试集比例
func WithTestSize(testSize float64) PreprocessOption {
	return func(s *PreprocessService) {
		if testSize > 0 {
			s.testSize = testSize
		}
	}
}

// WithSplitSeed 设置划分随机种子
func WithSplitSeed(seed int64) PreprocessOption {
	return func(s *PreprocessService) {
		s.splitSeed = seed
	}
}

// WithRunRepository 设置运行记录仓储
func WithRunRepository(repo repository.RunRepository) PreprocessOption {
	return func(s *PreprocessService) {
		s.repo = repo
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) PreprocessOption {
	return func(s *PreprocessService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// PreprocessResult 预处理结果摘要
type PreprocessResult struct {
	RunID         string // 运行ID
	DocumentCount int    // 语料文档数量
	FeatureCount  int    // 特征数量
	ClassCount    int    // 类别数量
	TrainCount    int    // 训练集样本数
	TestCount     int    // 测试集样本数
	OutputPath    string // npz产物路径
}

// Process 执行一次完整的预处理(加载、向量化、划分、落盘)
func (s *PreprocessService) Process(ctx context.Context, corpusDir string, outputPath string) (*PreprocessResult, error) {
	// 检查输入参数
	if corpusDir == "" {
		return nil, fmt.Errorf("corpus directory cannot be empty")
	}
	if outputPath == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}

	runID := uuid.New().String()
	s.logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"corpus_dir":  corpusDir,
		"output_path": outputPath,
	}).Info("Starting corpus preprocessing")

	// 创建运行记录，写入失败时只告警不中断
	run := s.beginRun(runID, corpusDir)

	// 1. 加载语料目录
	c, err := corpus.Load(corpusDir)
	if err != nil {
		err = fmt.Errorf("failed to load corpus: %w", err)
		s.failRun(run, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"documents":  c.Len(),
		"categories": len(c.Categories),
	}).Info("Corpus loaded")

	// 2. 构建TF-IDF特征矩阵
	X, err := s.vectorizer.FitTransform(c.Docs)
	if err != nil {
		err = fmt.Errorf("failed to vectorize corpus: %w", err)
		s.failRun(run, err)
		return nil, err
	}

	_, features := X.Dims()

	// 3. 分层划分训练集和测试集
	targets := c.Targets()
	split, err := dataset.StratifiedSplit(c.Len(), targets, s.testSize, s.splitSeed)
	if err != nil {
		err = fmt.Errorf("failed to split dataset: %w", err)
		s.failRun(run, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"train_samples": len(split.Train),
		"test_samples":  len(split.Test),
	}).Info("Dataset split completed")

	// 4. 组装并校验数据集
	bundle, err := dataset.NewBundle(X, targets, split, c.Categories)
	if err != nil {
		err = fmt.Errorf("failed to build dataset bundle: %w", err)
		s.failRun(run, err)
		return nil, err
	}

	// 5. 保存npz产物
	if err := bundle.SaveNPZ(outputPath); err != nil {
		err = fmt.Errorf("failed to save dataset artifact: %w", err)
		s.failRun(run, err)
		return nil, err
	}

	result := &PreprocessResult{
		RunID:         runID,
		DocumentCount: c.Len(),
		FeatureCount:  features,
		ClassCount:    len(c.Categories),
		TrainCount:    len(split.Train),
		TestCount:     len(split.Test),
		OutputPath:    outputPath,
	}

	// 标记运行完成
	s.completeRun(run, result)

	s.logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"output_path": outputPath,
		"documents":   result.DocumentCount,
		"features":    result.FeatureCount,
	}).Info("Corpus preprocessing completed")

	return result, nil
}

// beginRun 创建处于running状态的预处理运行记录
// 仓储未配置或写入失败时返回nil，不影响主流程
func (s *PreprocessService) beginRun(runID string, corpusDir string) *models.PreprocessRun {
	if s.repo == nil {
		return nil
	}

	run := &models.PreprocessRun{
		ID:        runID,
		CorpusDir: corpusDir,
		Status:    models.RunStatusRunning,
		Params:    s.paramsJSON(),
		StartedAt: time.Now(),
	}

	if err := s.repo.CreatePreprocessRun(run); err != nil {
		s.logger.WithError(err).Warn("Failed to create preprocess run record")
		return nil
	}

	return run
}

// paramsJSON 序列化本次运行的向量化和划分参数
func (s *PreprocessService) paramsJSON() datatypes.JSON {
	cfg := s.vectorizer.Config()
	params := map[string]interface{}{
		"max_features":       cfg.MaxFeatures,
		"stop_words":         cfg.StopWords,
		"min_doc_freq":       cfg.MinDocFreq,
		"max_doc_freq_ratio": cfg.MaxDocFreqRatio,
		"sublinear_tf":       cfg.SublinearTF,
		"test_size":          s.testSize,
		"split_seed":         s.splitSeed,
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil
	}

	return datatypes.JSON(data)
}

// failRun 将运行记录标记为失败并写入错误信息
func (s *PreprocessService) failRun(run *models.PreprocessRun, cause error) {
	if run == nil || s.repo == nil {
		return
	}

	now := time.Now()
	run.Status = models.RunStatusFailed
	run.Error = cause.Error()
	run.FinishedAt = &now

	if err := s.repo.UpdatePreprocessRun(run); err != nil {
		s.logger.WithError(err).Warn("Failed to update preprocess run record")
	}
}

// completeRun 将运行记录标记为完成并写入统计数据
func (s *PreprocessService) completeRun(run *models.PreprocessRun, result *PreprocessResult) {
	if run == nil || s.repo == nil {
		return
	}

	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.DocumentCount = result.DocumentCount
	run.FeatureCount = result.FeatureCount
	run.ClassCount = result.ClassCount
	run.TrainCount = result.TrainCount
	run.TestCount = result.TestCount
	run.OutputPath = result.OutputPath
	run.FinishedAt = &now

	if err := s.repo.UpdatePreprocessRun(run); err != nil {
		s.logger.WithError(err).Warn("Failed to update preprocess run record")
	}
}
