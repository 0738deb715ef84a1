package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFReader PDF文档读取器
type PDFReader struct{}

// NewPDFReader 创建一个新的PDF读取器
func NewPDFReader() Reader {
	return &PDFReader{}
}

// Read 提取PDF文件的文本内容
// pdfcpu把每页内容提取为单独的文件，这里按页码顺序拼接
func (r *PDFReader) Read(path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "newsgroup_pdf_")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, tmpDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract text from PDF: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted text dir: %v", err)
	}

	// 按文件名排序即按页码顺序
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var pages []string
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			continue
		}
		pages = append(pages, decodeText(data))
	}

	result := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if result == "" {
		return "", fmt.Errorf("no text content found in PDF: %s", path)
	}
	return result, nil
}
