package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrEmptyCorpus 语料目录中没有任何文档
// 这是整条流水线唯一的前置条件检查：空语料必须在向量化之前中止
var ErrEmptyCorpus = errors.New("corpus contains no documents")

// Document 语料库中的单个文档
type Document struct {
	Path     string // 文件的完整路径
	Category string // 类别名称，即root下一级目录名
}

// Corpus 加载完成的语料库
// Docs按路径字典序排列，Categories是去重后按字典序排列的类别表，
// 文档的整数标签就是其类别在Categories中的下标
type Corpus struct {
	Docs       []Document // 文档列表（按路径排序）
	Categories []string   // 类别名称表（排序去重）
}

// Load 递归遍历语料目录并构建语料库
// 目录结构约定为 root/<category>/<file>，直接位于root下的散文件没有类别，会被跳过
func Load(root string) (*Corpus, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access corpus directory: %v", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path is not a directory: %s", root)
	}

	var docs []Document
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// 跳过目录本身
		if info.IsDir() {
			return nil
		}

		// 只收集常规文件
		if !info.Mode().IsRegular() {
			return nil
		}

		// 类别是文件路径上紧邻root的那一级目录名
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) < 2 {
			// 直接位于root下的文件没有类别目录
			return nil
		}

		docs = append(docs, Document{
			Path:     path,
			Category: parts[0],
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus directory: %v", err)
	}

	// 空语料必须在这里中止，后续阶段不再检查
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	// 按路径字典序排序，保证特征矩阵的行顺序与标签向量严格对齐
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Path < docs[j].Path
	})

	// 收集并排序类别名称
	seen := make(map[string]bool)
	var categories []string
	for _, doc := range docs {
		if !seen[doc.Category] {
			seen[doc.Category] = true
			categories = append(categories, doc.Category)
		}
	}
	sort.Strings(categories)

	return &Corpus{
		Docs:       docs,
		Categories: categories,
	}, nil
}

// Targets 返回与Docs平行的整数标签向量
// 标签是文档类别在Categories中的下标
func (c *Corpus) Targets() []int {
	index := make(map[string]int, len(c.Categories))
	for i, name := range c.Categories {
		index[name] = i
	}

	targets := make([]int, len(c.Docs))
	for i, doc := range c.Docs {
		targets[i] = index[doc.Category]
	}
	return targets
}

// Len 返回语料库中的文档数量
func (c *Corpus) Len() int {
	return len(c.Docs)
}
