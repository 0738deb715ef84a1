package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/fyerfyer/newsgroup-classifier/config"
	"github.com/fyerfyer/newsgroup-classifier/internal/cache"
	"github.com/fyerfyer/newsgroup-classifier/internal/database"
	"github.com/fyerfyer/newsgroup-classifier/internal/repository"
	"github.com/fyerfyer/newsgroup-classifier/internal/services"
	"github.com/fyerfyer/newsgroup-classifier/internal/vectorizer"
	"github.com/fyerfyer/newsgroup-classifier/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 命令行参数
type cliFlags struct {
	ConfigFile  string  // 配置文件路径
	CorpusDir   string  // 语料根目录
	Output      string  // 数据集输出路径
	MaxFeatures int     // 词表容量上限
	StopWords   string  // 停用词表名称
	TestSize    float64 // 测试集比例
	Seed        int64   // 划分随机种子
	CacheType   string  // 分词缓存类型
	LogLevel    string  // 日志级别
	NoDatabase  bool    // 禁用运行记录数据库
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
	appLogger.Info("Starting newsgroup preprocessing...")

	// 初始化运行记录数据库
	// 数据库不可用时继续执行，只是不落运行记录
	runRepo := setupRepository(cfg, appLogger)
	if runRepo != nil {
		defer database.Close()
	}

	// 创建分词缓存
	tokenCache := setupCache(cfg, appLogger)

	// 创建TF-IDF向量化器
	vec, err := setupVectorizer(cfg, tokenCache, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to initialize vectorizer: %v", err)
	}

	// 创建预处理服务
	options := []services.PreprocessOption{
		services.WithTestSize(cfg.Split.TestSize),
		services.WithSplitSeed(cfg.Split.Seed),
		services.WithLogger(appLogger),
	}
	if runRepo != nil {
		options = append(options, services.WithRunRepository(runRepo))
	}
	service := services.NewPreprocessService(vec, options...)

	// 执行预处理流水线
	start := time.Now()
	result, err := service.Process(context.Background(), cfg.Corpus.Dir, cfg.Output.DatasetPath)
	if err != nil {
		appLogger.Fatalf("Preprocessing failed: %v", err)
	}

	appLogger.WithFields(logrus.Fields{
		"run_id":    result.RunID,
		"documents": result.DocumentCount,
		"features":  result.FeatureCount,
		"classes":   result.ClassCount,
		"train":     result.TrainCount,
		"test":      result.TestCount,
		"output":    result.OutputPath,
		"elapsed":   time.Since(start).String(),
	}).Info("Preprocessing finished")
}

// parseFlags 解析命令行参数
func parseFlags() cliFlags {
	f := cliFlags{}

	flag.StringVar(&f.ConfigFile, "config", "", "Path to config file")
	flag.StringVar(&f.CorpusDir, "corpus", "", "Corpus root directory")
	flag.StringVar(&f.Output, "output", "", "Dataset artifact output path")
	flag.IntVar(&f.MaxFeatures, "max-features", 10000, "Vocabulary size cap (0 means unlimited)")
	flag.StringVar(&f.StopWords, "stop-words", "english", "Stop word list (english/none)")
	flag.Float64Var(&f.TestSize, "test-size", 0.2, "Test split fraction")
	flag.Int64Var(&f.Seed, "seed", 42, "Split shuffle seed")
	flag.StringVar(&f.CacheType, "cache", "memory", "Token cache type (memory/redis)")
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
		case "corpus":
			cfg.Corpus.Dir = f.CorpusDir
		case "output":
			cfg.Output.DatasetPath = f.Output
		case "max-features":
			cfg.Vectorizer.MaxFeatures = f.MaxFeatures
		case "stop-words":
			cfg.Vectorizer.StopWords = f.StopWords
		case "test-size":
			cfg.Split.TestSize = f.TestSize
		case "seed":
			cfg.Split.Seed = f.Seed
		case "cache":
			cfg.Cache.Type = f.CacheType
		case "log-level":
			cfg.Log.Level = f.LogLevel
		case "no-db":
			cfg.Database.Enable = !f.NoDatabase
		}
	})
}

// setupRepository 初始化运行记录数据库和仓储
// 失败时返回nil，流水线照常执行
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

// setupCache 创建分词缓存
func setupCache(cfg *config.Config, log *logrus.Logger) cache.Cache {
	if !cfg.Cache.Enable || !cfg.Vectorizer.CacheTokens {
		return nil
	}

	cacheConfig := cache.Config{
		Type:            cfg.Cache.Type,
		DefaultTTL:      time.Duration(cfg.Cache.TTL) * time.Second,
		CleanupInterval: 10 * time.Minute,
	}

	// 如果配置了Redis，添加Redis配置
	if cfg.Cache.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Cache.Address
		cacheConfig.RedisPassword = cfg.Cache.Password
		cacheConfig.RedisDB = cfg.Cache.DB
	}

	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize token cache, continuing without cache")
		return nil
	}

	return c
}

// setupVectorizer 创建TF-IDF向量化器
func setupVectorizer(cfg *config.Config, tokenCache cache.Cache, log *logrus.Logger) (*vectorizer.Vectorizer, error) {
	vecConfig := vectorizer.Config{
		MaxFeatures:     cfg.Vectorizer.MaxFeatures,
		StopWords:       cfg.Vectorizer.StopWords,
		MinDocFreq:      cfg.Vectorizer.MinDocFreq,
		MaxDocFreqRatio: cfg.Vectorizer.MaxDocFreqRatio,
		Lowercase:       cfg.Vectorizer.Lowercase,
		StripAccents:    cfg.Vectorizer.StripAccents,
		SublinearTF:     cfg.Vectorizer.SublinearTF,
		CacheTokens:     cfg.Vectorizer.CacheTokens,
	}

	opts := []vectorizer.Option{vectorizer.WithLogger(log)}
	if tokenCache != nil {
		opts = append(opts,
			vectorizer.WithCache(tokenCache),
			vectorizer.WithCacheTTL(time.Duration(cfg.Cache.TTL)*time.Second),
		)
	}

	return vectorizer.NewVectorizer(vecConfig, opts...)
}
