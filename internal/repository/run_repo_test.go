package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fyerfyer/newsgroup-classifier/internal/database"
	"github.com/fyerfyer/newsgroup-classifier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	// 使用唯一的内存数据库标识符
	dbName := fmt.Sprintf("file:memdb_%d?mode=memory", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err, "Failed to open in-memory database")

	// 运行迁移以创建所需的表
	err = db.AutoMigrate(&models.PreprocessRun{}, &models.TrainingRun{})
	require.NoError(t, err, "Failed to run migrations")

	// 保存原始全局DB引用
	originalDB := database.DB

	// 替换全局DB为测试DB
	database.DB = db

	// 返回测试DB和清理函数
	cleanup := func() {
		// 恢复原始DB引用
		database.DB = originalDB
	}

	return db, cleanup
}

func TestRunRepository_CreatePreprocessRun(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()

	// 创建测试运行记录
	run := &models.PreprocessRun{
		ID:        "prep-run-1",
		CorpusDir: "data/20news-18828",
		Params:    datatypes.JSON(`{"max_features":10000,"test_size":0.2}`),
	}

	// 测试创建
	err := repo.CreatePreprocessRun(run)
	assert.NoError(t, err, "Preprocess run creation should succeed")

	// 验证记录已创建，钩子填充了默认值
	saved, err := repo.GetPreprocessRun(run.ID)
	assert.NoError(t, err, "Should be able to retrieve created run")
	assert.Equal(t, run.ID, saved.ID, "Run ID should match")
	assert.Equal(t, run.CorpusDir, saved.CorpusDir, "Corpus directory should match")
	assert.Equal(t, models.RunStatusPending, saved.Status, "Status should default to pending")
	assert.False(t, saved.StartedAt.IsZero(), "StartedAt should be set by hook")

	// 测试空ID被拒绝
	err = repo.CreatePreprocessRun(&models.PreprocessRun{CorpusDir: "data"})
	assert.Error(t, err, "Creation with empty ID should fail")
}

func TestRunRepository_UpdatePreprocessRun(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()

	// 创建测试运行记录
	run := &models.PreprocessRun{
		ID:        "prep-run-2",
		CorpusDir: "data/20news-18828",
		Status:    models.RunStatusRunning,
	}

	err := repo.CreatePreprocessRun(run)
	require.NoError(t, err, "Preprocess run creation should succeed")

	// 更新运行结果
	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.DocumentCount = 18828
	run.FeatureCount = 10000
	run.ClassCount = 20
	run.TrainCount = 15062
	run.TestCount = 3766
	run.OutputPath = "data/dataset.npz"
	run.FinishedAt = &now

	err = repo.UpdatePreprocessRun(run)
	assert.NoError(t, err, "Preprocess run update should succeed")

	// 验证更新
	updated, err := repo.GetPreprocessRun(run.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, updated.Status, "Status should be updated")
	assert.Equal(t, 18828, updated.DocumentCount, "Document count should be updated")
	assert.Equal(t, 10000, updated.FeatureCount, "Feature count should be updated")
	assert.Equal(t, 20, updated.ClassCount, "Class count should be updated")
	assert.Equal(t, "data/dataset.npz", updated.OutputPath, "Output path should be updated")
	assert.NotNil(t, updated.FinishedAt, "FinishedAt should be set")

	// 未定义的状态值应被拒绝
	run.Status = "cancelled"
	err = repo.UpdatePreprocessRun(run)
	assert.Error(t, err, "Update with unknown status should fail")
	assert.True(t, errors.Is(err, models.ErrInvalidRunStatus), "Error should wrap ErrInvalidRunStatus")
}

func TestRunRepository_GetPreprocessRun(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()

	// 测试获取不存在的记录
	run, err := repo.GetPreprocessRun("non-existing")
	assert.Error(t, err, "Should return error for non-existing run")
	assert.True(t, errors.Is(err, models.ErrRunNotFound), "Error should wrap ErrRunNotFound")
	assert.Nil(t, run, "Should return nil for non-existing run")

	// 创建测试记录
	testRun := &models.PreprocessRun{
		ID:        "prep-run-3",
		CorpusDir: "data/20news-18828",
	}
	err = repo.CreatePreprocessRun(testRun)
	require.NoError(t, err)

	// 测试获取存在的记录
	run, err = repo.GetPreprocessRun("prep-run-3")
	assert.NoError(t, err, "Should retrieve existing run without error")
	assert.NotNil(t, run, "Should return run object")
	assert.Equal(t, "data/20news-18828", run.CorpusDir, "Run properties should match")
}

func TestRunRepository_ListPreprocessRuns(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()

	// 创建不同开始时间的测试记录
	runs := []*models.PreprocessRun{
		{
			ID:        "prep-run-4",
			CorpusDir: "data/corpus-a",
			StartedAt: time.Now().Add(-2 * time.Hour),
		},
		{
			ID:        "prep-run-5",
			CorpusDir: "data/corpus-b",
			StartedAt: time.Now().Add(-1 * time.Hour),
		},
		{
			ID:        "prep-run-6",
			CorpusDir: "data/corpus-c",
			StartedAt: time.Now(),
		},
	}

	for _, run := range runs {
		err := repo.CreatePreprocessRun(run)
		require.NoError(t, err)
	}

	// 测试完整列表，按开始时间倒序
	result, total, err := repo.ListPreprocessRuns(0, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total, "Total count should be 3")
	assert.Len(t, result, 3, "Should return 3 runs")
	assert.Equal(t, "prep-run-6", result[0].ID, "Most recent run should come first")
	assert.Equal(t, "prep-run-4", result[2].ID, "Oldest run should come last")

	// 测试分页
	result, total, err = repo.ListPreprocessRuns(1, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total, "Total count should still be 3")
	assert.Len(t, result, 2, "Should return 2 runs with offset 1")
	assert.Equal(t, "prep-run-5", result[0].ID, "Offset should skip the most recent run")
}

func TestRunRepository_TrainingRunLifecycle(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()

	// 创建测试训练记录
	run := &models.TrainingRun{
		ID:          "train-run-1",
		DatasetPath: "data/dataset.npz",
		Params:      datatypes.JSON(`{"hidden_size":5000,"batch_size":100,"epochs":5}`),
		Status:      models.RunStatusRunning,
	}

	err := repo.CreateTrainingRun(run)
	assert.NoError(t, err, "Training run creation should succeed")

	// 测试空ID被拒绝
	err = repo.CreateTrainingRun(&models.TrainingRun{DatasetPath: "data/dataset.npz"})
	assert.Error(t, err, "Creation with empty ID should fail")

	// 更新训练结果
	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.Accuracy = 0.8675
	run.Report = datatypes.JSON(`{"macro_f1":0.85}`)
	run.DurationMs = 123456
	run.ModelPath = "data/model.zip"
	run.FinishedAt = &now

	err = repo.UpdateTrainingRun(run)
	assert.NoError(t, err, "Training run update should succeed")

	// 验证更新
	updated, err := repo.GetTrainingRun(run.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, updated.Status, "Status should be updated")
	assert.InDelta(t, 0.8675, updated.Accuracy, 1e-9, "Accuracy should be updated")
	assert.Equal(t, int64(123456), updated.DurationMs, "Duration should be updated")
	assert.Equal(t, "data/model.zip", updated.ModelPath, "Model path should be updated")
	assert.NotNil(t, updated.FinishedAt, "FinishedAt should be set")

	// 测试获取不存在的记录
	missing, err := repo.GetTrainingRun("non-existing")
	assert.Error(t, err, "Should return error for non-existing run")
	assert.True(t, errors.Is(err, models.ErrRunNotFound), "Error should wrap ErrRunNotFound")
	assert.Nil(t, missing, "Should return nil for non-existing run")

	// 未定义的状态值应被拒绝
	run.Status = "unknown"
	err = repo.UpdateTrainingRun(run)
	assert.Error(t, err, "Update with unknown status should fail")
	assert.True(t, errors.Is(err, models.ErrInvalidRunStatus), "Error should wrap ErrInvalidRunStatus")
}

func TestRunRepository_ListTrainingRuns(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository()

	// 创建不同开始时间的测试记录
	runs := []*models.TrainingRun{
		{
			ID:          "train-run-2",
			DatasetPath: "data/dataset.npz",
			StartedAt:   time.Now().Add(-1 * time.Hour),
		},
		{
			ID:          "train-run-3",
			DatasetPath: "data/dataset.npz",
			StartedAt:   time.Now(),
		},
	}

	for _, run := range runs {
		err := repo.CreateTrainingRun(run)
		require.NoError(t, err)
	}

	// 测试列表，按开始时间倒序
	result, total, err := repo.ListTrainingRuns(0, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total, "Total count should be 2")
	assert.Len(t, result, 2, "Should return 2 runs")
	assert.Equal(t, "train-run-3", result[0].ID, "Most recent run should come first")

	// 测试分页
	result, total, err = repo.ListTrainingRuns(1, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total, "Total count should still be 2")
	assert.Len(t, result, 1, "Should return 1 run with offset 1")
	assert.Equal(t, "train-run-2", result[0].ID, "Offset should skip the most recent run")
}
