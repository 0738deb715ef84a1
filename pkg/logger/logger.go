package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

// 初始化日志配置
func init() {
	// 设置输出到标准输出
	log.SetOutput(os.Stdout)
	// 设置日志格式为JSON格式
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	// 根据环境变量设置日志级别
	if os.Getenv("DEBUG") == "true" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// Config 日志配置
type Config struct {
	Level      string // 日志级别：trace, debug, info, warn, error
	File       string // 日志文件路径，为空时只输出到标准输出
	MaxSize    int    // 单个日志文件最大体积（MB）
	MaxBackups int    // 保留的历史日志文件数量
	MaxAge     int    // 日志文件保留天数
	Compress   bool   // 是否压缩历史日志
}

// Setup 按配置初始化全局日志记录器
func Setup(cfg Config) {
	// 设置日志级别，非法级别保持当前级别
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}

	// 配置了日志文件时同时输出到标准输出和文件，文件按大小轮转
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// GetLogger 获取全局日志记录器
func GetLogger() *logrus.Logger {
	return log
}
