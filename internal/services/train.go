package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyerfyer/newsgroup-classifier/internal/dataset"
	"github.com/fyerfyer/newsgroup-classifier/internal/evaluation"
	"github.com/fyerfyer/newsgroup-classifier/internal/models"
	"github.com/fyerfyer/newsgroup-classifier/internal/repository"
	"github.com/fyerfyer/newsgroup-classifier/internal/trainer"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// TrainService 训练服务
// 负责协调数据集加载、模型训练、测试集评估和模型落盘
type TrainService struct {
	trainer   *trainer.Trainer         // MLP训练器
	repo      repository.RunRepository // 运行记录仓储，可为空
	modelPath string                   // 模型保存路径，为空时不保存
	logger    *logrus.Logger           // 日志记录器
}

// TrainOption 训练服务配置选项
type TrainOption func(*TrainService)

// NewTrainService 创建训练服务实例
func NewTrainService(tr *trainer.Trainer, opts ...TrainOption) *TrainService {
	// 创建服务实例
	service := &TrainService{
		trainer: tr,
		logger:  logrus.New(), // 默认日志记录器
	}

	// 应用配置选项
	for _, opt := range opts {
		opt(service)
	}

	return service
}

// WithModelOutput 设置模型保存路径
func WithModelOutput(path string) TrainOption {
	return func(s *TrainService) {
		s.modelPath = path
	}
}

// WithTrainRepository 设置运行记录仓储
func WithTrainRepository(repo repository.RunRepository) TrainOption {
	return func(s *TrainService) {
		s.repo = repo
	}
}

// WithTrainLogger 设置日志记录器
func WithTrainLogger(logger *logrus.Logger) TrainOption {
	return func(s *TrainService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// TrainResult 训练结果
type TrainResult struct {
	RunID      string             // 运行ID
	Model      *trainer.Model     // 训练完成的模型
	Evaluation *evaluation.Result // 测试集评估结果
	Duration   time.Duration      // 训练耗时
}

// Run 执行一次完整的训练和评估
func (s *TrainService) Run(ctx context.Context, datasetPath string) (*TrainResult, error) {
	// 检查输入参数
	if datasetPath == "" {
		return nil, fmt.Errorf("dataset path cannot be empty")
	}

	runID := uuid.New().String()
	s.logger.WithFields(logrus.Fields{
		"run_id":       runID,
		"dataset_path": datasetPath,
	}).Info("Starting model training")

	// 创建运行记录，写入失败时只告警不中断
	run := s.beginRun(runID, datasetPath)

	// 1. 加载数据集产物
	bundle, err := dataset.LoadNPZ(datasetPath)
	if err != nil {
		err = fmt.Errorf("failed to load dataset: %w", err)
		s.failRun(run, err)
		return nil, err
	}

	trainRows, features := bundle.TrainData.Dims()
	testRows, _ := bundle.TestData.Dims()
	s.logger.WithFields(logrus.Fields{
		"train_samples": trainRows,
		"test_samples":  testRows,
		"features":      features,
		"classes":       bundle.NumClasses(),
	}).Info("Dataset loaded")

	// 2. 训练模型
	start := time.Now()
	model, err := s.trainer.Train(bundle)
	if err != nil {
		err = fmt.Errorf("failed to train model: %w", err)
		s.failRun(run, err)
		return nil, err
	}
	duration := time.Since(start)

	s.logger.WithFields(logrus.Fields{
		"duration_ms": duration.Milliseconds(),
	}).Info("Model training completed")

	// 3. 在测试集上预测并评估
	preds, err := model.Predict(bundle.TestData)
	if err != nil {
		err = fmt.Errorf("failed to predict on test set: %w", err)
		s.failRun(run, err)
		return nil, err
	}

	yTrue := make([]int, len(bundle.TestTarget))
	for i, v := range bundle.TestTarget {
		yTrue[i] = int(v)
	}

	evalResult, err := evaluation.Evaluate(yTrue, preds, bundle.Labels)
	if err != nil {
		err = fmt.Errorf("failed to evaluate model: %w", err)
		s.failRun(run, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"accuracy": evalResult.Accuracy,
	}).Info("Model evaluation completed")

	// 4. 按需保存模型
	if s.modelPath != "" {
		if err := model.Save(s.modelPath); err != nil {
			err = fmt.Errorf("failed to save model: %w", err)
			s.failRun(run, err)
			return nil, err
		}
		s.logger.WithField("model_path", s.modelPath).Info("Model saved")
	}

	result := &TrainResult{
		RunID:      runID,
		Model:      model,
		Evaluation: evalResult,
		Duration:   duration,
	}

	// 标记运行完成
	s.completeRun(run, result)

	return result, nil
}

// beginRun 创建处于running状态的训练运行记录
// 仓储未配置或写入失败时返回nil，不影响主流程
func (s *TrainService) beginRun(runID string, datasetPath string) *models.TrainingRun {
	if s.repo == nil {
		return nil
	}

	run := &models.TrainingRun{
		ID:          runID,
		DatasetPath: datasetPath,
		Status:      models.RunStatusRunning,
		Params:      s.paramsJSON(),
		StartedAt:   time.Now(),
	}

	if err := s.repo.CreateTrainingRun(run); err != nil {
		s.logger.WithError(err).Warn("Failed to create training run record")
		return nil
	}

	return run
}

// paramsJSON 序列化本次运行的训练超参数
func (s *TrainService) paramsJSON() datatypes.JSON {
	cfg := s.trainer.Config()
	params := map[string]interface{}{
		"hidden_size": cfg.HiddenSize,
		"batch_size":  cfg.BatchSize,
		"epochs":      cfg.Epochs,
		"learn_rate":  cfg.LearnRate,
		"l2":          cfg.L2,
		"optimizer":   cfg.Optimizer,
		"seed":        cfg.Seed,
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil
	}

	return datatypes.JSON(data)
}

// failRun 将运行记录标记为失败并写入错误信息
func (s *TrainService) failRun(run *models.TrainingRun, cause error) {
	if run == nil || s.repo == nil {
		return
	}

	now := time.Now()
	run.Status = models.RunStatusFailed
	run.Error = cause.Error()
	run.FinishedAt = &now

	if err := s.repo.UpdateTrainingRun(run); err != nil {
		s.logger.WithError(err).Warn("Failed to update training run record")
	}
}

// completeRun 将运行记录标记为完成并写入评估结果
func (s *TrainService) completeRun(run *models.TrainingRun, result *TrainResult) {
	if run == nil || s.repo == nil {
		return
	}

	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.Accuracy = result.Evaluation.Accuracy
	run.DurationMs = result.Duration.Milliseconds()
	run.ModelPath = s.modelPath
	run.FinishedAt = &now

	// 序列化评估报告，失败时留空
	if report, err := json.Marshal(result.Evaluation); err == nil {
		run.Report = datatypes.JSON(report)
	}

	if err := s.repo.UpdateTrainingRun(run); err != nil {
		s.logger.WithError(err).Warn("Failed to update training run record")
	}
}
