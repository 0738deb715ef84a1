package corpus

import (
	"path/filepath"
	"strings"
)

// Reader 文档读取器接口
// 负责将不同格式的语料文件读取为纯文本
type Reader interface {
	// Read 读取文档，返回纯文本内容
	Read(path string) (string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
)

// ReaderFactory 根据文件类型创建对应的读取器
// 新闻组语料的文件通常没有扩展名，所以未知类型一律按纯文本处理
func ReaderFactory(path string) Reader {
	switch detectContentType(path) {
	case PDF:
		return NewPDFReader()
	case Markdown:
		return NewMarkdownReader()
	default:
		return NewPlainTextReader()
	}
}

// ReadDocument 读取单个语料文件并返回纯文本
func ReadDocument(path string) (string, error) {
	return ReaderFactory(path).Read(path)
}

// detectContentType 根据文件扩展名检测内容类型
func detectContentType(path string) ContentType {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	default:
		return PlainText
	}
}
