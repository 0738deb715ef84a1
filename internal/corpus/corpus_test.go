package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestCorpus 在临时目录中构建一个小语料库
// 返回语料根目录
func buildTestCorpus(t *testing.T) string {
	root := t.TempDir()

	files := map[string]string{
		"sci.space/0002":    "the rocket launch was delayed",
		"sci.space/0001":    "orbital mechanics and gravity",
		"rec.autos/0003":    "the engine needs new spark plugs",
		"rec.autos/0001":    "a classic car with manual transmission",
		"comp.graphics/img": "rendering polygons with ray tracing",
	}

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	// root下的散文件没有类别，应当被忽略
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("not a document"), 0644))

	return root
}

func TestLoad(t *testing.T) {
	root := buildTestCorpus(t)

	c, err := Load(root)
	require.NoError(t, err)
	require.NotNil(t, c)

	// 5个文档，root下的散文件被跳过
	assert.Equal(t, 5, c.Len(), "stray files under root should not be counted")

	// 类别表排序去重
	assert.Equal(t, []string{"comp.graphics", "rec.autos", "sci.space"}, c.Categories)

	// 文档按路径字典序排列
	for i := 1; i < len(c.Docs); i++ {
		assert.True(t, c.Docs[i-1].Path < c.Docs[i].Path, "documents should be sorted by path")
	}
}

func TestLoadEmptyCorpus(t *testing.T) {
	root := t.TempDir()

	c, err := Load(root)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrEmptyCorpus, "empty corpus directory should abort the pipeline")
}

func TestLoadOnlyStrayFiles(t *testing.T) {
	// 只有root下的散文件、没有类别目录时同样算空语料
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("no category"), 0644))

	_, err := Load(root)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyCorpus, "missing directory is not the empty-corpus case")
}

func TestTargets(t *testing.T) {
	root := buildTestCorpus(t)

	c, err := Load(root)
	require.NoError(t, err)

	targets := c.Targets()
	require.Len(t, targets, c.Len(), "targets must be parallel to documents")

	// 标签必须和各文档的类别下标一致
	index := make(map[string]int)
	for i, name := range c.Categories {
		index[name] = i
	}
	for i, doc := range c.Docs {
		assert.Equal(t, index[doc.Category], targets[i],
			"target for %s should match its category index", doc.Path)
	}
}
