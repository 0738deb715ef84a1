package corpus

import (
	"fmt"
	"os"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownReader Markdown文档读取器
// 遍历语法树收集文本节点，标记符号（#、*、链接等）不会进入分词器
type MarkdownReader struct{}

// NewMarkdownReader 创建新的Markdown读取器
func NewMarkdownReader() Reader {
	return &MarkdownReader{}
}

// Read 读取Markdown文件并提取纯文本内容
func (r *MarkdownReader) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read markdown file: %v", err)
	}

	// 先做宽容解码，再解析Markdown
	content := decodeText(data)

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)
	doc := mdParser.Parse([]byte(content))

	// 遍历AST，收集所有文本叶子节点
	var b strings.Builder
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}

		switch n := node.(type) {
		case *ast.Text:
			writeChunk(&b, string(n.Literal))
		case *ast.Code:
			writeChunk(&b, string(n.Literal))
		case *ast.CodeBlock:
			writeChunk(&b, string(n.Literal))
		}
		return ast.GoToNext
	})

	return strings.TrimSpace(b.String()), nil
}

// writeChunk 追加一段文本并保证片段之间有空白分隔
func writeChunk(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(text)
}
