package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotExist 表示后备文件尚未创建。
var ErrNotExist = os.ErrNotExist

// errSkipSave 由 mutate 闭包返回，表示本次不需要写盘（例如目标记录不存在）。
var errSkipSave = errors.New("store: skip save")

func isNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// Document 以"整体读取、内存修改、整体写回"的方式管理一个 JSON 文档。
// 所有修改都在同一把互斥锁内完成，写入时先落临时文件再原子重命名，
// 保证外部读取方（站点渲染、sitemap 生成等）永远看不到半截文档。
type Document[T any] struct {
	path string
	mu   sync.Mutex
}

// NewDocument 构造指向 path 的文档句柄，不会立即创建文件。
func NewDocument[T any](path string) *Document[T] {
	return &Document[T]{path: path}
}

// Path 返回后备文件路径。
func (d *Document[T]) Path() string {
	return d.path
}

// Load 读取并解析整个文档。文件不存在时返回 ErrNotExist，
// 内容损坏时返回解析错误，由调用方决定是回退默认值还是上报。
func (d *Document[T]) Load() (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadLocked()
}

func (d *Document[T]) loadLocked() (T, error) {
	var value T

	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return value, fmt.Errorf("read document %s: %w", d.path, ErrNotExist)
		}
		return value, fmt.Errorf("read document %s: %w", d.path, err)
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("parse document %s: %w", d.path, err)
	}

	return value, nil
}

// Save 覆盖写入整个文档。
func (d *Document[T]) Save(value T) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveLocked(value)
}

func (d *Document[T]) saveLocked(value T) error {
	if err := ensureParentDir(d.path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), "."+filepath.Base(d.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", d.path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp for %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp for %s: %w", d.path, err)
	}

	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace document %s: %w", d.path, err)
	}

	return nil
}

// Update 在锁内执行读取-修改-写回：加载文档（不存在时从零值开始），
// 调用 mutate 修改内存副本，最后原子落盘。mutate 返回错误时不写盘。
func (d *Document[T]) Update(mutate func(*T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	value, err := d.loadLocked()
	if err != nil && !errors.Is(err, ErrNotExist) {
		return err
	}

	if err := mutate(&value); err != nil {
		return err
	}

	return d.saveLocked(value)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("document path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
