package vectorizer

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/fyerfyer/newsgroup-classifier/internal/cache"
	"github.com/fyerfyer/newsgroup-classifier/internal/corpus"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Config 向量化配置
type Config struct {
	MaxFeatures     int     // 特征数量上限，只保留语料词频最高的这么多个词，0表示不限制
	StopWords       string  // 停用词表名称："english"或"none"
	MinDocFreq      int     // 词的最低文档频率（绝对数量）
	MaxDocFreqRatio float64 // 词的最高文档频率（占语料的比例）
	Lowercase       bool    // 分词前是否转小写
	StripAccents    bool    // 是否去除重音符号
	SublinearTF     bool    // 是否使用次线性词频 1+ln(tf)
	CacheTokens     bool    // 是否缓存逐文档词频统计
}

// DefaultConfig 返回默认向量化配置
func DefaultConfig() Config {
	return Config{
		MaxFeatures:     10000,
		StopWords:       "english",
		MinDocFreq:      1,
		MaxDocFreqRatio: 1.0,
		Lowercase:       true,
		StripAccents:    false,
		SublinearTF:     false,
		CacheTokens:     true,
	}
}

// Vectorizer TF-IDF向量化器
// 两遍扫描语料：第一遍分词计数，第二遍按构建好的词表填充权重矩阵。
// 给定相同的文档顺序，输出完全确定
type Vectorizer struct {
	config    Config
	tokenizer *Tokenizer
	stopWords map[string]struct{}
	cache     cache.Cache
	cacheTTL  time.Duration
	logger    *logrus.Logger
	vocab     *Vocabulary
}

// Option 向量化器选项
type Option func(*Vectorizer)

// WithCache 设置词频统计的缓存后端
func WithCache(c cache.Cache) Option {
	return func(v *Vectorizer) {
		v.cache = c
	}
}

// WithCacheTTL 设置缓存条目的过期时间
func WithCacheTTL(ttl time.Duration) Option {
	return func(v *Vectorizer) {
		v.cacheTTL = ttl
	}
}

// WithLogger 设置日志器
func WithLogger(logger *logrus.Logger) Option {
	return func(v *Vectorizer) {
		v.logger = logger
	}
}

// NewVectorizer 创建向量化器
func NewVectorizer(config Config, opts ...Option) (*Vectorizer, error) {
	if config.MaxFeatures < 0 {
		return nil, fmt.Errorf("max features must not be negative, got %d", config.MaxFeatures)
	}
	if config.MinDocFreq < 1 {
		return nil, fmt.Errorf("min document frequency must be at least 1, got %d", config.MinDocFreq)
	}
	if config.MaxDocFreqRatio <= 0 || config.MaxDocFreqRatio > 1 {
		return nil, fmt.Errorf("max document frequency ratio must be in (0, 1], got %v", config.MaxDocFreqRatio)
	}

	stopWords, err := StopWordSet(config.StopWords)
	if err != nil {
		return nil, err
	}

	v := &Vectorizer{
		config:    config,
		tokenizer: NewTokenizer(config.Lowercase, config.StripAccents),
		stopWords: stopWords,
		logger:    logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// FitTransform 把文档列表转换成TF-IDF特征矩阵
// 返回的矩阵每行做过L2归一化，宽度等于词表大小，不会超过MaxFeatures
func (v *Vectorizer) FitTransform(docs []corpus.Document) (*mat.Dense, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to vectorize")
	}

	v.logger.WithFields(logrus.Fields{
		"documents":    len(docs),
		"max_features": v.config.MaxFeatures,
		"stop_words":   v.config.StopWords,
	}).Info("Starting TF-IDF vectorization")

	// 第一遍：逐文档分词计数
	docCounts := make([]map[string]int, len(docs))
	for i, doc := range docs {
		counts, err := v.tokenCounts(doc.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize document %s: %v", doc.Path, err)
		}
		docCounts[i] = counts
	}

	// 构建词表
	vocab, err := buildVocabulary(docCounts, v.stopWords, v.config)
	if err != nil {
		return nil, err
	}
	v.vocab = vocab

	// 第二遍：按词表填充tf·idf权重，逐行L2归一化
	X := mat.NewDense(len(docs), vocab.Size(), nil)
	for i, counts := range docCounts {
		row := X.RawRowView(i)
		for term, count := range counts {
			j, ok := vocab.Index[term]
			if !ok {
				continue
			}
			tf := float64(count)
			if v.config.SublinearTF {
				tf = 1 + math.Log(tf)
			}
			row[j] = tf * vocab.IDF[j]
		}

		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}

	v.logger.WithFields(logrus.Fields{
		"documents": len(docs),
		"features":  vocab.Size(),
	}).Info("Vectorization complete")

	return X, nil
}

// Vocabulary 返回最近一次FitTransform构建的词表
// 未执行过FitTransform时返回nil
func (v *Vectorizer) Vocabulary() *Vocabulary {
	return v.vocab
}

// Config 返回向量化器的配置副本
func (v *Vectorizer) Config() Config {
	return v.config
}

// tokenCounts 获取单个文档的词频统计
// 开启缓存时优先读缓存，未命中则读文件分词并回写
func (v *Vectorizer) tokenCounts(path string) (map[string]int, error) {
	useCache := v.config.CacheTokens && v.cache != nil
	key := cache.GenerateCacheKey("tokens", v.tokenizer.Signature(), path)

	if useCache {
		if val, found, err := v.cache.Get(key); err == nil && found {
			var counts map[string]int
			if err := json.Unmarshal([]byte(val), &counts); err == nil {
				return counts, nil
			}
			// 缓存内容损坏时当作未命中，重新分词
		}
	}

	text, err := corpus.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	counts := v.tokenizer.Counts(text)

	if useCache {
		if data, err := json.Marshal(counts); err == nil {
			if err := v.cache.Set(key, string(data), v.cacheTTL); err != nil {
				v.logger.WithError(err).WithField("path", path).Warn("Failed to cache token counts")
			}
		}
	}

	return counts, nil
}
