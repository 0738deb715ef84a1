package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/fyerfyer/newsgroup-classifier/config"
	"github.com/fyerfyer/newsgroup-classifier/internal/database"
	"github.com/fyerfyer/newsgroup-classifier/internal/repository"
	"github.com/fyerfyer/newsgroup-classifier/internal/services"
	"github.com/fyerfyer/newsgroup-classifier/internal/trainer"
	"github.com/fyerfyer/newsgroup-classifier/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 命令行参数
type cliFlags struct {
	ConfigFile string  // 配置文件路径
	Dataset    string  // 数据集路径
	ModelOut   string  // 模型输出路径
	HiddenSize int     // 隐层神经元数量
	BatchSize  int     // 小批量大小
	Epochs     int     // 训练轮数
	LearnRate  float64 // 学习率
	L2         float64 // L2正则化系数
	Optimizer  string  // 优化器名称
	Seed       int64   // 训练随机种子
	LogLevel   string  // 日志级别
	NoDatabase bool    // 禁用运行记录数据库
}

func main() {
	// 加载.env文件(如果存在)
	_ = godotenv.Load()

	// 解析命令行参数
	flags := parseFlags()

	// 加载配置文件
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 显式传入的命令行参数覆盖配置文件
	applyFlags(cfg, flags)

	// 初始化日志
	logger.Setup(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	appLogger := logger.GetLogger()
	appLogger.Info("Starting newsgroup classifier training...")

	// 初始化运行记录数据库
	// 数据库不可用时继续执行，只是不落运行记录
	runRepo := setupRepository(cfg, appLogger)
	if runRepo != nil {
		defer database.Close()
	}

	// 创建MLP训练器
	mlpTrainer, err := setupTrainer(cfg, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to initialize trainer: %v", err)
	}

	// 创建训练服务
	options := []services.TrainOption{
		services.WithTrainLogger(appLogger),
	}
	if cfg.Output.ModelPath != "" {
		options = append(options, services.WithModelOutput(cfg.Output.ModelPath))
	}
	if runRepo != nil {
		options = append(options, services.WithTrainRepository(runRepo))
	}
	service := services.NewTrainService(mlpTrainer, options...)

	// 执行训练和评估
	result, err := service.Run(context.Background(), cfg.Output.DatasetPath)
	if err != nil {
		appLogger.Fatalf("Training failed: %v", err)
	}

	appLogger.WithFields(logrus.Fields{
		"run_id":   result.RunID,
		"accuracy": result.Evaluation.Accuracy,
		"elapsed":  result.Duration.String(),
	}).Info("Training finished")

	// 输出测试集评估报告
	fmt.Print(result.Evaluation.Report())
	if cfg.Output.ModelPath != "" {
		fmt.Printf("\nmodel saved to %s\n", cfg.Output.ModelPath)
	}
}

// parseFlags 解析命令行参数
func parseFlags() cliFlags {
	f := cliFlags{}

	flag.StringVar(&f.ConfigFile, "config", "", "Path to config file")
	flag.StringVar(&f.Dataset, "dataset", "", "Dataset artifact path")
	flag.StringVar(&f.ModelOut, "model-out", "", "Trained model output path")
	flag.IntVar(&f.HiddenSize, "hidden", 5000, "Hidden layer size")
	flag.IntVar(&f.BatchSize, "batch", 100, "Mini-batch size")
	flag.IntVar(&f.Epochs, "epochs", 5, "Number of training epochs")
	flag.Float64Var(&f.LearnRate, "lr", 0.001, "Learning rate")
	flag.Float64Var(&f.L2, "l2", 0.0001, "L2 regularization strength")
	flag.StringVar(&f.Optimizer, "optimizer", "adam", "Optimizer (adam/sgd)")
	flag.Int64Var(&f.Seed, "seed", 42, "Training random seed")
	flag.StringVar(&f.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.BoolVar(&f.NoDatabase, "no-db", false, "Disable run record database")

	flag.Parse()
	return f
}

// applyFlags 将显式设置的命令行参数写回配置
// 未出现在命令行上的参数保持配置文件或默认值
func applyFlags(cfg *config.Config, f cliFlags) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "dataset":
			cfg.Output.DatasetPath = f.Dataset
		case "model-out":
			cfg.Output.ModelPath = f.ModelOut
		case "hidden":
			cfg.Training.HiddenSize = f.HiddenSize
		case "batch":
			cfg.Training.BatchSize = f.BatchSize
		case "epochs":
			cfg.Training.Epochs = f.Epochs
		case "lr":
			cfg.Training.LearnRate = f.LearnRate
		case "l2":
			cfg.Training.L2 = f.L2
		case "optimizer":
			cfg.Training.Optimizer = f.Optimizer
		case "seed":
			cfg.Training.Seed = f.Seed
		case "log-level":
			cfg.Log.Level = f.LogLevel
		case "no-db":
			cfg.Database.Enable = !f.NoDatabase
		}
	})
}

// setupRepository 初始化运行记录数据库和仓储
// 失败时返回nil，训练照常执行
func setupRepository(cfg *config.Config, log *logrus.Logger) repository.RunRepository {
	if !cfg.Database.Enable {
		return nil
	}

	dbConfig := &database.Config{
		Type: cfg.Database.Type,
		DSN:  cfg.Database.DSN,
	}

	if err := database.Setup(dbConfig, log); err != nil {
		log.WithError(err).Warn("Failed to initialize run database, runs will not be recorded")
		return nil
	}

	return repository.NewRunRepository()
}

// setupTrainer 创建MLP训练器
func setupTrainer(cfg *config.Config, log *logrus.Logger) (*trainer.Trainer, error) {
	trainConfig := trainer.Config{
		HiddenSize: cfg.Training.HiddenSize,
		BatchSize:  cfg.Training.BatchSize,
		Epochs:     cfg.Training.Epochs,
		LearnRate:  cfg.Training.LearnRate,
		L2:         cfg.Training.L2,
		Optimizer:  cfg.Training.Optimizer,
		Seed:       cfg.Training.Seed,
	}

	return trainer.NewTrainer(trainConfig, trainer.WithLogger(log))
}
