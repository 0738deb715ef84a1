package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// SplitIndices 训练/测试划分结果
// 两个索引集都按升序排列，互不相交，并集覆盖全部样本
type SplitIndices struct {
	Train []int // 训练集样本下标
	Test  []int // 测试集样本下标
}

// StratifiedSplit 分层抽样划分
// 每个类别按其在全体样本中的占比分配测试名额，保证训练集和测试集里
// 每个类别都有样本；相同的种子产生完全相同的划分
func StratifiedSplit(n int, targets []int, testSize float64, seed int64) (*SplitIndices, error) {
	if n <= 0 {
		return nil, fmt.Errorf("number of samples must be positive, got %d", n)
	}
	if len(targets) != n {
		return nil, fmt.Errorf("targets length %d does not match sample count %d", len(targets), n)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}

	// 按类别分桶，桶内保持原始顺序
	buckets := make(map[int][]int)
	var classes []int
	for i, c := range targets {
		if _, ok := buckets[c]; !ok {
			classes = append(classes, c)
		}
		buckets[c] = append(buckets[c], i)
	}
	sort.Ints(classes)

	// 类别至少要有2个样本才能同时出现在两个子集里
	for _, c := range classes {
		if len(buckets[c]) < 2 {
			return nil, fmt.Errorf("class %d has only %d sample(s), need at least 2 for a stratified split",
				c, len(buckets[c]))
		}
	}

	// 总测试集大小向上取整
	nTest := int(math.Ceil(float64(n) * testSize))

	// 按占比给每个类别分配测试名额：先取整数部分，缺口按小数部分从大到小补齐，
	// 小数相同时类别号小的优先
	type remainder struct {
		class int
		frac  float64
	}

	alloc := make(map[int]int, len(classes))
	rems := make([]remainder, 0, len(classes))
	allocated := 0
	for _, c := range classes {
		exact := float64(nTest) * float64(len(buckets[c])) / float64(n)
		k := int(math.Floor(exact))
		alloc[c] = k
		allocated += k
		rems = append(rems, remainder{class: c, frac: exact - float64(k)})
	}
	sort.Slice(rems, func(i, j int) bool {
		if rems[i].frac != rems[j].frac {
			return rems[i].frac > rems[j].frac
		}
		return rems[i].class < rems[j].class
	})
	for i := 0; allocated < nTest && i < len(rems); i++ {
		alloc[rems[i].class]++
		allocated++
	}

	// 每个类别在两个子集里都必须有样本
	for _, c := range classes {
		if alloc[c] < 1 {
			alloc[c] = 1
		}
		if alloc[c] > len(buckets[c])-1 {
			alloc[c] = len(buckets[c]) - 1
		}
	}

	// 单一随机源按类别顺序洗牌，种子固定则划分固定
	rng := rand.New(rand.NewSource(seed))

	split := &SplitIndices{}
	for _, c := range classes {
		bucket := buckets[c]
		rng.Shuffle(len(bucket), func(i, j int) {
			bucket[i], bucket[j] = bucket[j], bucket[i]
		})

		k := alloc[c]
		split.Test = append(split.Test, bucket[:k]...)
		split.Train = append(split.Train, bucket[k:]...)
	}

	sort.Ints(split.Train)
	sort.Ints(split.Test)

	return split, nil
}
