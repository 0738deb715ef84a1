package dataset

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// npz存档的成员名称，与NumPy的np.savez约定保持一致
const (
	memberTrainData   = "train_data.npy"
	memberTrainTarget = "train_target.npy"
	memberTestData    = "test_data.npy"
	memberTestTarget  = "test_target.npy"
	memberLabels      = "labels.json"
)

// SaveNPZ 把数据包写成npz存档
// npz就是一个zip，四个数组各占一个npy成员，类别名称表放在labels.json里；
// 已存在的文件会被截断重写
func (b *Bundle) SaveNPZ(path string) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid bundle: %v", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %v", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	if err := writeNpyMember(zw, memberTrainData, b.TrainData); err != nil {
		return err
	}
	if err := writeNpyMember(zw, memberTrainTarget, b.TrainTarget); err != nil {
		return err
	}
	if err := writeNpyMember(zw, memberTestData, b.TestData); err != nil {
		return err
	}
	if err := writeNpyMember(zw, memberTestTarget, b.TestTarget); err != nil {
		return err
	}

	w, err := zw.Create(memberLabels)
	if err != nil {
		return fmt.Errorf("failed to create %s member: %v", memberLabels, err)
	}
	if err := json.NewEncoder(w).Encode(b.Labels); err != nil {
		return fmt.Errorf("failed to write labels: %v", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize artifact: %v", err)
	}
	return nil
}

// LoadNPZ 读取npz存档并校验形状
func LoadNPZ(path string) (*Bundle, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %v", err)
	}
	defer zr.Close()

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		members[f.Name] = f
	}

	b := &Bundle{}

	if b.TrainData, err = readNpyMatrix(members, memberTrainData); err != nil {
		return nil, err
	}
	if b.TrainTarget, err = readNpyTargets(members, memberTrainTarget); err != nil {
		return nil, err
	}
	if b.TestData, err = readNpyMatrix(members, memberTestData); err != nil {
		return nil, err
	}
	if b.TestTarget, err = readNpyTargets(members, memberTestTarget); err != nil {
		return nil, err
	}
	if b.Labels, err = readLabels(members); err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("artifact failed validation: %v", err)
	}
	return b, nil
}

// writeNpyMember 向zip写入一个npy数组成员
func writeNpyMember(zw *zip.Writer, name string, value interface{}) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s member: %v", name, err)
	}
	if err := npyio.Write(w, value); err != nil {
		return fmt.Errorf("failed to write %s: %v", name, err)
	}
	return nil
}

// readNpyMatrix 从zip成员解码一个二维float64数组
func readNpyMatrix(members map[string]*zip.File, name string) (*mat.Dense, error) {
	rc, err := openMember(members, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var m mat.Dense
	if err := npyio.Read(rc, &m); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v", name, err)
	}
	return &m, nil
}

// readNpyTargets 从zip成员解码一维int64标签数组
func readNpyTargets(members map[string]*zip.File, name string) ([]int64, error) {
	rc, err := openMember(members, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var v []int64
	if err := npyio.Read(rc, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v", name, err)
	}
	return v, nil
}

// readLabels 解码labels.json成员
func readLabels(members map[string]*zip.File) ([]string, error) {
	rc, err := openMember(members, memberLabels)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var labels []string
	if err := json.NewDecoder(rc).Decode(&labels); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v", memberLabels, err)
	}
	return labels, nil
}

func openMember(members map[string]*zip.File, name string) (io.ReadCloser, error) {
	f, ok := members[name]
	if !ok {
		return nil, fmt.Errorf("artifact is missing member %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open member %s: %v", name, err)
	}
	return rc, nil
}
