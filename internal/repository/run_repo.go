package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyerfyer/newsgroup-classifier/internal/database"
	"github.com/fyerfyer/newsgroup-classifier/internal/models"
	"gorm.io/gorm"
)

// RunRepository 运行记录仓储接口
// 提供预处理运行和训练运行的持久化操作
type RunRepository interface {
	// CreatePreprocessRun 创建预处理运行记录
	CreatePreprocessRun(run *models.PreprocessRun) error
	// UpdatePreprocessRun 更新预处理运行记录
	UpdatePreprocessRun(run *models.PreprocessRun) error
	// GetPreprocessRun 根据ID获取预处理运行记录
	GetPreprocessRun(id string) (*models.PreprocessRun, error)
	// ListPreprocessRuns 分页获取预处理运行记录列表
	ListPreprocessRuns(offset, limit int) ([]*models.PreprocessRun, int64, error)

	// CreateTrainingRun 创建训练运行记录
	CreateTrainingRun(run *models.TrainingRun) error
	// UpdateTrainingRun 更新训练运行记录
	UpdateTrainingRun(run *models.TrainingRun) error
	// GetTrainingRun 根据ID获取训练运行记录
	GetTrainingRun(id string) (*models.TrainingRun, error)
	// ListTrainingRuns 分页获取训练运行记录列表
	ListTrainingRuns(offset, limit int) ([]*models.TrainingRun, int64, error)
}

// runRepository 运行记录仓储实现
type runRepository struct {
	db  *gorm.DB
	ctx context.Context
}

// NewRunRepository 创建运行记录仓储实例
func NewRunRepository() RunRepository {
	return &runRepository{
		db:  database.MustDB(),
		ctx: context.Background(),
	}
}

// NewRunRepositoryWithDB 使用指定的数据库连接创建运行记录仓储实例
func NewRunRepositoryWithDB(db *gorm.DB) RunRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &runRepository{
		db:  db,
		ctx: context.Background(),
	}
}

// CreatePreprocessRun 创建预处理运行记录
func (r *runRepository) CreatePreprocessRun(run *models.PreprocessRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	if err := r.db.WithContext(r.ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create preprocess run: %v", err)
	}

	return nil
}

// UpdatePreprocessRun 更新预处理运行记录
func (r *runRepository) UpdatePreprocessRun(run *models.PreprocessRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if !run.Status.Valid() {
		return fmt.Errorf("%w: %s", models.ErrInvalidRunStatus, run.Status)
	}

	result := r.db.WithContext(r.ctx).Save(run)
	if result.Error != nil {
		return fmt.Errorf("failed to update preprocess run: %v", result.Error)
	}

	return nil
}

// GetPreprocessRun 根据ID获取预处理运行记录
func (r *runRepository) GetPreprocessRun(id string) (*models.PreprocessRun, error) {
	var run models.PreprocessRun

	err := r.db.WithContext(r.ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get preprocess run: %v", err)
	}

	return &run, nil
}

// ListPreprocessRuns 分页获取预处理运行记录列表
func (r *runRepository) ListPreprocessRuns(offset, limit int) ([]*models.PreprocessRun, int64, error) {
	var runs []*models.PreprocessRun
	var total int64

	// 先统计总数
	if err := r.db.WithContext(r.ctx).Model(&models.PreprocessRun{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count preprocess runs: %v", err)
	}

	// 按开始时间倒序分页查询
	err := r.db.WithContext(r.ctx).
		Order("started_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list preprocess runs: %v", err)
	}

	return runs, total, nil
}

// CreateTrainingRun 创建训练运行记录
func (r *runRepository) CreateTrainingRun(run *models.TrainingRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	if err := r.db.WithContext(r.ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create training run: %v", err)
	}

	return nil
}

// UpdateTrainingRun 更新训练运行记录
func (r *runRepository) UpdateTrainingRun(run *models.TrainingRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if !run.Status.Valid() {
		return fmt.Errorf("%w: %s", models.ErrInvalidRunStatus, run.Status)
	}

	result := r.db.WithContext(r.ctx).Save(run)
	if result.Error != nil {
		return fmt.Errorf("failed to update training run: %v", result.Error)
	}

	return nil
}

// GetTrainingRun 根据ID获取训练运行记录
func (r *runRepository) GetTrainingRun(id string) (*models.TrainingRun, error) {
	var run models.TrainingRun

	err := r.db.WithContext(r.ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get training run: %v", err)
	}

	return &run, nil
}

// ListTrainingRuns 分页获取训练运行记录列表
func (r *runRepository) ListTrainingRuns(offset, limit int) ([]*models.TrainingRun, int64, error) {
	var runs []*models.TrainingRun
	var total int64

	// 先统计总数
	if err := r.db.WithContext(r.ctx).Model(&models.TrainingRun{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count training runs: %v", err)
	}

	// 按开始时间倒序分页查询
	err := r.db.WithContext(r.ctx).
		Order("started_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list training runs: %v", err)
	}

	return runs, total, nil
}
