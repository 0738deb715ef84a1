package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RunStatus 运行状态类型
type RunStatus string

const (
	// RunStatusPending 运行已创建，等待执行
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning 运行执行中
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted 运行成功完成
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed 运行失败
	RunStatusFailed RunStatus = "failed"
)

// Valid 判断是否为已定义的运行状态
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// PreprocessRun 预处理运行记录
// 记录一次从语料目录到npz产物的完整预处理，便于对比多次实验
type PreprocessRun struct {
	ID            string         `gorm:"primaryKey"`         // 运行ID，主键
	CorpusDir     string         `gorm:"not null"`           // 语料根目录
	DocumentCount int            `gorm:"not null;default:0"` // 语料文档数量
	FeatureCount  int            `gorm:"not null;default:0"` // 特征矩阵列数
	ClassCount    int            `gorm:"not null;default:0"` // 类别数量
	TrainCount    int            `gorm:"not null;default:0"` // 训练集样本数
	TestCount     int            `gorm:"not null;default:0"` // 测试集样本数
	OutputPath    string         `gorm:"type:varchar(255)"`  // npz产物路径
	Params        datatypes.JSON `gorm:"type:json"`          // 向量化和划分参数
	Status        RunStatus      `gorm:"not null;index"`     // 运行状态
	Error         string         `gorm:"type:text"`          // 错误信息
	StartedAt     time.Time      `gorm:"not null;index"`     // 开始时间
	FinishedAt    *time.Time     `gorm:"index"`              // 结束时间
	UpdatedAt     time.Time      `gorm:"not null"`           // 更新时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间和初始状态
func (r *PreprocessRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = RunStatusPending
	}
	r.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (r *PreprocessRun) BeforeUpdate(tx *gorm.DB) (err error) {
	r.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (PreprocessRun) TableName() string {
	return "preprocess_runs"
}

// TrainingRun 训练运行记录
// 记录一次从npz产物到评估报告的完整训练
type TrainingRun struct {
	ID          string         `gorm:"primaryKey"`        // 运行ID，主键
	DatasetPath string         `gorm:"not null"`          // npz产物路径
	ModelPath   string         `gorm:"type:varchar(255)"` // 模型保存路径，可为空
	Params      datatypes.JSON `gorm:"type:json"`         // 训练超参数
	Accuracy    float64        `gorm:"default:0"`         // 测试集准确率
	Report      datatypes.JSON `gorm:"type:json"`         // 逐类别评估指标
	DurationMs  int64          `gorm:"default:0"`         // 训练耗时（毫秒）
	Status      RunStatus      `gorm:"not null;index"`    // 运行状态
	Error       string         `gorm:"type:text"`         // 错误信息
	StartedAt   time.Time      `gorm:"not null;index"`    // 开始时间
	FinishedAt  *time.Time     `gorm:"index"`             // 结束时间
	UpdatedAt   time.Time      `gorm:"not null"`          // 更新时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间和初始状态
func (r *TrainingRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = RunStatusPending
	}
	r.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (r *TrainingRun) BeforeUpdate(tx *gorm.DB) (err error) {
	r.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (TrainingRun) TableName() string {
	return "training_runs"
}
