package corpus

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// PlainTextReader 纯文本读取器
// 新闻组语料中混有非UTF-8编码的邮件，解码必须宽容：坏字节被替换而不是报错
type PlainTextReader struct{}

// NewPlainTextReader 创建一个新的纯文本读取器
func NewPlainTextReader() Reader {
	return &PlainTextReader{}
}

// Read 读取纯文本文件并做宽容解码
func (r *PlainTextReader) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %v", err)
	}

	return decodeText(data), nil
}

// decodeText 宽容解码文件内容
// 合法UTF-8原样返回；否则按Latin-1重新解码，每个字节都有对应字符，不会失败
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// Latin-1解码理论上不会失败，这里兜底按原样返回
		return string(data)
	}
	return string(decoded)
}
