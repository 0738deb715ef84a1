package vectorizer

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fyerfyer/newsgroup-classifier/internal/cache"
	"github.com/fyerfyer/newsgroup-classifier/internal/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// writeTestDocs 把文档写入临时语料目录并返回排好序的文档列表
// 文件名决定文档在矩阵中的行顺序
func writeTestDocs(t *testing.T, contents map[string]string) []corpus.Document {
	root := t.TempDir()
	dir := filepath.Join(root, "misc")
	require.NoError(t, os.MkdirAll(dir, 0755))

	for name, content := range contents {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	c, err := corpus.Load(root)
	require.NoError(t, err)
	return c.Docs
}

func newTestVectorizer(t *testing.T, cfg Config, opts ...Option) *Vectorizer {
	v, err := NewVectorizer(cfg, opts...)
	require.NoError(t, err)
	return v
}

func TestFitTransformShape(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "rocket engine thrust",
		"0002": "rocket orbit gravity",
		"0003": "engine fuel pump pressure",
	})

	cfg := DefaultConfig()
	cfg.StopWords = "none"
	cfg.CacheTokens = false
	v := newTestVectorizer(t, cfg)

	X, err := v.FitTransform(docs)
	require.NoError(t, err)

	rows, cols := X.Dims()
	assert.Equal(t, 3, rows, "one row per document")
	assert.Equal(t, v.Vocabulary().Size(), cols)
	assert.LessOrEqual(t, cols, cfg.MaxFeatures, "matrix width never exceeds the feature cap")
}

func TestFitTransformRowNorms(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "alpha beta gamma",
		"0002": "alpha alpha delta",
		"0003": "beta epsilon",
	})

	cfg := DefaultConfig()
	cfg.StopWords = "none"
	cfg.CacheTokens = false
	v := newTestVectorizer(t, cfg)

	X, err := v.FitTransform(docs)
	require.NoError(t, err)

	rows, _ := X.Dims()
	for i := 0; i < rows; i++ {
		row := mat.Row(nil, i, X)
		assert.InDelta(t, 1.0, floats.Norm(row, 2), 1e-9, "row %d should be L2-normalized", i)
	}
}

func TestFeatureCap(t *testing.T) {
	// 语料词频：apple=4, banana=3, cherry=2, date=1
	docs := writeTestDocs(t, map[string]string{
		"0001": "apple apple banana cherry",
		"0002": "apple apple banana banana cherry date",
	})

	cfg := DefaultConfig()
	cfg.StopWords = "none"
	cfg.MaxFeatures = 2
	cfg.CacheTokens = false
	v := newTestVectorizer(t, cfg)

	X, err := v.FitTransform(docs)
	require.NoError(t, err)

	_, cols := X.Dims()
	assert.Equal(t, 2, cols)
	// 保留语料词频最高的两个词，列号按字典序
	assert.Equal(t, []string{"apple", "banana"}, v.Vocabulary().Terms)
}

func TestFeatureCapUnlimited(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "apple banana cherry date",
	})

	cfg := DefaultConfig()
	cfg.StopWords = "none"
	cfg.MaxFeatures = 0
	cfg.CacheTokens = false
	v := newTestVectorizer(t, cfg)

	X, err := v.FitTransform(docs)
	require.NoError(t, err)

	// 上限为0时不截断词表
	_, cols := X.Dims()
	assert.Equal(t, 4, cols)
}

func TestStopWordRemoval(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "the cat sat on the mat",
	})

	cfg := DefaultConfig()
	cfg.CacheTokens = false
	v := newTestVectorizer(t, cfg)

	_, err := v.FitTransform(docs)
	require.NoError(t, err)

	terms := v.Vocabulary().Terms
	assert.Equal(t, []string{"cat", "mat", "sat"}, terms, "stop words should never enter the vocabulary")
}

func TestEmptyVocabulary(t *testing.T) {
	// 全部是停用词的语料无法构建词表
	docs := writeTestDocs(t, map[string]string{
		"0001": "the and of",
	})

	cfg := DefaultConfig()
	cfg.CacheTokens = false
	v := newTestVectorizer(t, cfg)

	_, err := v.FitTransform(docs)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestIDFValues(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "alpha beta",
		"0002": "alpha gamma",
	})

	cfg := DefaultConfig()
	cfg.StopWords = "none"
	cfg.CacheTokens = false
	v := newTestVectorizer(t, cfg)

	_, err := v.FitTransform(docs)
	require.NoError(t, err)

	vocab := v.Vocabulary()
	require.Equal(t, []string{"alpha", "beta", "gamma"}, vocab.Terms)

	// 平滑IDF：ln((1+N)/(1+df)) + 1
	assert.InDelta(t, 1.0, vocab.IDF[0], 1e-9, "term in every document: ln(3/3)+1")
	assert.InDelta(t, math.Log(1.5)+1, vocab.IDF[1], 1e-9, "term in one of two documents: ln(3/2)+1")
	assert.InDelta(t, math.Log(1.5)+1, vocab.IDF[2], 1e-9)
}

func TestMinDocFreq(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "common rare1",
		"0002": "common rare2",
	})

	cfg := DefaultConfig()
	cfg.StopWords = "none"
	cfg.MinDocFreq = 2
	cfg.CacheTokens = false
	v := newTestVectorizer(t, cfg)

	_, err := v.FitTransform(docs)
	require.NoError(t, err)

	assert.Equal(t, []string{"common"}, v.Vocabulary().Terms)
}

func TestSublinearTF(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "term term term term other",
	})

	base := DefaultConfig()
	base.StopWords = "none"
	base.CacheTokens = false

	// 线性词频下两个词的权重比是4:1
	v := newTestVectorizer(t, base)
	X, err := v.FitTransform(docs)
	require.NoError(t, err)
	require.Equal(t, []string{"other", "term"}, v.Vocabulary().Terms)
	assert.InDelta(t, 4.0, X.At(0, 1)/X.At(0, 0), 1e-9)

	// 次线性词频把比值压成 (1+ln4):1
	sub := base
	sub.SublinearTF = true
	v = newTestVectorizer(t, sub)
	X, err = v.FitTransform(docs)
	require.NoError(t, err)
	assert.InDelta(t, 1+math.Log(4), X.At(0, 1)/X.At(0, 0), 1e-9)
}

func TestDeterminism(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "rocket engine thrust vector",
		"0002": "orbit gravity assist",
		"0003": "fuel pump turbine",
	})

	cfg := DefaultConfig()
	cfg.StopWords = "none"
	cfg.CacheTokens = false

	X1, err := newTestVectorizer(t, cfg).FitTransform(docs)
	require.NoError(t, err)
	X2, err := newTestVectorizer(t, cfg).FitTransform(docs)
	require.NoError(t, err)

	assert.True(t, mat.Equal(X1, X2), "identical input order must produce identical matrices")
}

func TestCacheServesTokenCounts(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "real words here",
	})

	memCache, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)

	// 预先放入伪造的词频统计，命中缓存时文件内容不会被分词
	key := cache.GenerateCacheKey("tokens", "lc=true:sa=false", docs[0].Path)
	require.NoError(t, memCache.Set(key, `{"cached":3}`, 0))

	cfg := DefaultConfig()
	cfg.StopWords = "none"
	v := newTestVectorizer(t, cfg, WithCache(memCache))

	_, err = v.FitTransform(docs)
	require.NoError(t, err)

	assert.Equal(t, []string{"cached"}, v.Vocabulary().Terms,
		"token counts should come from the cache, not from the file")
}

func TestCacheWriteBack(t *testing.T) {
	docs := writeTestDocs(t, map[string]string{
		"0001": "orbit orbit gravity",
	})

	memCache, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.StopWords = "none"
	v := newTestVectorizer(t, cfg, WithCache(memCache))

	_, err = v.FitTransform(docs)
	require.NoError(t, err)

	key := cache.GenerateCacheKey("tokens", "lc=true:sa=false", docs[0].Path)
	val, found, err := memCache.Get(key)
	require.NoError(t, err)
	assert.True(t, found, "token counts should be written back to the cache")
	assert.JSONEq(t, `{"orbit":2,"gravity":1}`, val)
}

func TestNewVectorizerValidation(t *testing.T) {
	bad := []Config{
		{MaxFeatures: -1, MinDocFreq: 1, MaxDocFreqRatio: 1.0},
		{MaxFeatures: 10, MinDocFreq: 0, MaxDocFreqRatio: 1.0},
		{MaxFeatures: 10, MinDocFreq: 1, MaxDocFreqRatio: 0},
		{MaxFeatures: 10, MinDocFreq: 1, MaxDocFreqRatio: 1.5},
		{MaxFeatures: 10, MinDocFreq: 1, MaxDocFreqRatio: 1.0, StopWords: "klingon"},
	}

	for _, cfg := range bad {
		_, err := NewVectorizer(cfg)
		assert.Error(t, err, "config %+v should be rejected", cfg)
	}
}

func TestFitTransformNoDocuments(t *testing.T) {
	cfg := DefaultConfig()
	v := newTestVectorizer(t, cfg)

	_, err := v.FitTransform(nil)
	assert.Error(t, err)
}
