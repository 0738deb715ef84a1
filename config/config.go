package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Vectorizer VectorizerConfig `mapstructure:"vectorizer"`
	Split      SplitConfig      `mapstructure:"split"`
	Training   TrainingConfig   `mapstructure:"training"`
	Output     OutputConfig     `mapstructure:"output"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
}

// CorpusConfig 语料配置
type CorpusConfig struct {
	Dir string `mapstructure:"dir" validate:"required"` // 语料根目录，子目录名即类别名
}

// VectorizerConfig TF-IDF向量化配置
type VectorizerConfig struct {
	MaxFeatures     int     `mapstructure:"max_features" validate:"gte=0"`            // 词表容量上限，0表示不限制
	StopWords       string  `mapstructure:"stop_words"`                               // 停用词表名称：english 或 none
	MinDocFreq      int     `mapstructure:"min_doc_freq" validate:"gte=1"`            // 词项最小文档频率
	MaxDocFreqRatio float64 `mapstructure:"max_doc_freq_ratio" validate:"gt=0,lte=1"` // 词项最大文档频率比例
	Lowercase       bool    `mapstructure:"lowercase"`                                // 是否转小写
	StripAccents    bool    `mapstructure:"strip_accents"`                            // 是否去除重音符号
	SublinearTF     bool    `mapstructure:"sublinear_tf"`                             // 是否使用次线性词频
	CacheTokens     bool    `mapstructure:"cache_tokens"`                             // 是否缓存分词结果
}

// SplitConfig 数据集划分配置
type SplitConfig struct {
	TestSize float64 `mapstructure:"test_size" validate:"gt=0,lt=1"` // 测试集比例
	Seed     int64   `mapstructure:"seed"`                           // 划分随机种子
}

// TrainingConfig 训练配置
type TrainingConfig struct {
	HiddenSize int     `mapstructure:"hidden_size" validate:"gte=1"`        // 隐藏层神经元数量
	BatchSize  int     `mapstructure:"batch_size" validate:"gte=1"`         // 批处理大小
	Epochs     int     `mapstructure:"epochs" validate:"gte=1"`             // 训练轮数
	LearnRate  float64 `mapstructure:"learn_rate" validate:"gt=0"`          // 学习率
	L2         float64 `mapstructure:"l2" validate:"gte=0"`                 // L2正则化系数
	Optimizer  string  `mapstructure:"optimizer" validate:"oneof=adam sgd"` // 优化器类型
	Seed       int64   `mapstructure:"seed"`                                // 训练随机种子
}

// OutputConfig 产物输出配置
type OutputConfig struct {
	DatasetPath string `mapstructure:"dataset_path" validate:"required"` // npz数据集产物路径
	ModelPath   string `mapstructure:"model_path"`                       // 模型保存路径，为空时不保存
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用分词缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enable bool   `mapstructure:"enable"` // 是否启用运行记录数据库
	Type   string `mapstructure:"type"`   // 数据库类型: sqlite
	DSN    string `mapstructure:"dsn"`    // 数据源名称
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别：trace, debug, info, warn, error
	File       string `mapstructure:"file"`        // 日志文件路径，为空时只输出到标准输出
	MaxSize    int    `mapstructure:"max_size"`    // 单个日志文件最大体积（MB）
	MaxBackups int    `mapstructure:"max_backups"` // 保留的历史日志文件数量
	MaxAge     int    `mapstructure:"max_age"`     // 日志文件保留天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩历史日志
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	// 设置默认配置路径
	if configPath == "" {
		configPath = "config.yaml" // 默认在当前目录寻找config.yaml
	}

	// 初始化viper
	v := viper.New()

	// 设置配置文件路径和类型
	v.SetConfigFile(configPath)

	// 尝试读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，创建一个默认配置文件
		if os.IsNotExist(err) {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
			setDefaults(v)
			// 创建默认配置文件
			dir := filepath.Dir(configPath)
			if err := os.MkdirAll(dir, 0755); err == nil {
				if err := v.WriteConfigAs(configPath); err != nil {
					log.Printf("Warning: Could not write default config to %s: %v", configPath, err)
				}
			}
		} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
			setDefaults(v)
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	// 设置默认值
	setDefaults(v)

	// 支持环境变量覆盖
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 解析配置到结构体
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	// 处理配置项中的环境变量引用
	resConfig := processEnvironmentVariables(&config)

	// 校验配置合法性
	if err := validator.New().Struct(resConfig); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}

	return resConfig, nil
}

// processEnvironmentVariables 展开配置项中的${VAR}环境变量引用
func processEnvironmentVariables(cfg *Config) *Config {
	// 处理Redis密码
	if strings.HasPrefix(cfg.Cache.Password, "${") && strings.HasSuffix(cfg.Cache.Password, "}") {
		envVar := cfg.Cache.Password[2 : len(cfg.Cache.Password)-1]
		if envVal := os.Getenv(envVar); envVal != "" {
			cfg.Cache.Password = envVal
		}
	}

	// 处理数据库DSN
	if strings.HasPrefix(cfg.Database.DSN, "${") && strings.HasSuffix(cfg.Database.DSN, "}") {
		envVar := cfg.Database.DSN[2 : len(cfg.Database.DSN)-1]
		if envVal := os.Getenv(envVar); envVal != "" {
			cfg.Database.DSN = envVal
		}
	}

	return cfg
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 语料默认配置
	v.SetDefault("corpus.dir", "data/20news-18828")

	// 向量化默认配置
	v.SetDefault("vectorizer.max_features", 10000)
	v.SetDefault("vectorizer.stop_words", "english")
	v.SetDefault("vectorizer.min_doc_freq", 1)
	v.SetDefault("vectorizer.max_doc_freq_ratio", 1.0)
	v.SetDefault("vectorizer.lowercase", true)
	v.SetDefault("vectorizer.strip_accents", false)
	v.SetDefault("vectorizer.sublinear_tf", false)
	v.SetDefault("vectorizer.cache_tokens", true)

	// 划分默认配置
	v.SetDefault("split.test_size", 0.2)
	v.SetDefault("split.seed", 42)

	// 训练默认配置
	v.SetDefault("training.hidden_size", 5000)
	v.SetDefault("training.batch_size", 100)
	v.SetDefault("training.epochs", 5)
	v.SetDefault("training.learn_rate", 0.001)
	v.SetDefault("training.l2", 0.0001)
	v.SetDefault("training.optimizer", "adam")
	v.SetDefault("training.seed", 42)

	// 输出默认配置
	v.SetDefault("output.dataset_path", "data/dataset.npz")
	v.SetDefault("output.model_path", "")

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 86400) // 24小时

	// 数据库默认配置
	v.SetDefault("database.enable", true)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/newsgroup.db")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
}
