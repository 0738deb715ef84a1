package vectorizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// tokenPattern 匹配两个及以上字母/数字/下划线组成的词
// 单字符词元和纯标点被丢弃
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_][\p{L}\p{N}_]+`)

// Tokenizer 分词器
// 只负责切词和计数，停用词过滤在词表构建阶段进行，
// 这样缓存的词频统计不依赖停用词配置
type Tokenizer struct {
	lowercase    bool // 是否转小写
	stripAccents bool // 是否去除重音符号
}

// NewTokenizer 创建新的分词器
func NewTokenizer(lowercase, stripAccents bool) *Tokenizer {
	return &Tokenizer{
		lowercase:    lowercase,
		stripAccents: stripAccents,
	}
}

// Tokenize 把文本切分成词元序列
func (t *Tokenizer) Tokenize(text string) []string {
	if t.lowercase {
		text = strings.ToLower(text)
	}
	if t.stripAccents {
		text = stripAccentMarks(text)
	}
	return tokenPattern.FindAllString(text, -1)
}

// Counts 统计文本中各词元的出现次数
func (t *Tokenizer) Counts(text string) map[string]int {
	counts := make(map[string]int)
	for _, token := range t.Tokenize(text) {
		counts[token]++
	}
	return counts
}

// Signature 返回分词配置的签名
// 缓存键带上签名，配置变化后旧的词频统计不会被误用
func (t *Tokenizer) Signature() string {
	return fmt.Sprintf("lc=%t:sa=%t", t.lowercase, t.stripAccents)
}

// stripAccentMarks 去除文本中的重音符号
// NFD分解后丢弃所有组合用记号，café变成cafe
func stripAccentMarks(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
