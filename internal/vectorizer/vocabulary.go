package vectorizer

import (
	"errors"
	"math"
	"sort"
)

// ErrEmptyVocabulary 过滤后词表为空
// 通常意味着语料只含停用词或文档频率界限设置得太紧
var ErrEmptyVocabulary = errors.New("empty vocabulary: corpus contains only stop words or pruned terms")

// Vocabulary 向量化用的词表
// Terms按字典序排列，词的列号就是其在Terms中的下标；
// DocFreq和IDF与Terms平行
type Vocabulary struct {
	Terms   []string       // 词表（字典序）
	Index   map[string]int // 词到列号的映射
	DocFreq []int          // 各词的文档频率
	IDF     []float64      // 各词的逆文档频率权重
}

// Size 返回词表大小，即特征矩阵的列数
func (v *Vocabulary) Size() int {
	return len(v.Terms)
}

// buildVocabulary 从逐文档词频统计构建词表
// 流程：过滤停用词 -> 文档频率上下界过滤 -> 按语料词频截取前MaxFeatures个
// -> 按字典序分配列号 -> 计算平滑IDF
func buildVocabulary(docCounts []map[string]int, stop map[string]struct{}, cfg Config) (*Vocabulary, error) {
	nDocs := len(docCounts)

	// 文档频率和语料总词频
	df := make(map[string]int)
	tf := make(map[string]int)
	for _, counts := range docCounts {
		for term, count := range counts {
			if _, banned := stop[term]; banned {
				continue
			}
			df[term]++
			tf[term] += count
		}
	}

	// 文档频率上下界过滤
	maxDF := cfg.MaxDocFreqRatio * float64(nDocs)
	terms := make([]string, 0, len(df))
	for term, d := range df {
		if d < cfg.MinDocFreq {
			continue
		}
		if float64(d) > maxDF {
			continue
		}
		terms = append(terms, term)
	}

	if len(terms) == 0 {
		return nil, ErrEmptyVocabulary
	}

	// 超出特征上限时保留语料词频最高的词，词频相同按字典序取前者
	if cfg.MaxFeatures > 0 && len(terms) > cfg.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:cfg.MaxFeatures]
	}

	// 列号按词的字典序分配
	sort.Strings(terms)

	index := make(map[string]int, len(terms))
	docFreq := make([]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		index[term] = i
		docFreq[i] = df[term]
		// 平滑IDF：ln((1+N)/(1+df)) + 1，语料中处处出现的词权重也不为零
		idf[i] = math.Log(float64(1+nDocs)/float64(1+df[term])) + 1
	}

	return &Vocabulary{
		Terms:   terms,
		Index:   index,
		DocFreq: docFreq,
		IDF:     idf,
	}, nil
}
