package models

import (
	"path/filepath"
	"testing"
)

func TestNewBatchProgress(t *testing.T) {
	processed := []string{"https://example.com/a", "https://example.com/b"}
	failed := []string{"https://example.com/c"}

	p := NewBatchProgress(processed, failed, 5)
	if p.TotalURLs != 5 {
		t.Errorf("总数 = %d", p.TotalURLs)
	}
	if p.Remaining != 2 {
		t.Errorf("剩余 = %d, 期望 2", p.Remaining)
	}
	if p.SuccessRate != "40.0" {
		t.Errorf("成功率 = %q, 期望 %q", p.SuccessRate, "40.0")
	}
	if p.Timestamp.IsZero() {
		t.Error("快照时间未设置")
	}
}

func TestNewBatchProgressEmpty(t *testing.T) {
	p := NewBatchProgress(nil, nil, 0)
	if p.SuccessRate != "0.0" {
		t.Errorf("空批次成功率 = %q", p.SuccessRate)
	}
	if p.Remaining != 0 {
		t.Errorf("空批次剩余 = %d", p.Remaining)
	}
}

func TestProgressSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch_progress.json")
	original := NewBatchProgress([]string{"https://example.com/a"}, []string{"https://example.com/b"}, 3)

	if err := original.SaveToFile(path); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	loaded, err := LoadProgressFromFile(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if loaded.TotalURLs != 3 || loaded.Remaining != 1 {
		t.Errorf("加载结果错误: %+v", loaded)
	}
	if len(loaded.ProcessedURLs) != 1 || loaded.ProcessedURLs[0] != "https://example.com/a" {
		t.Errorf("已处理URL = %v", loaded.ProcessedURLs)
	}
}

func TestLoadProgressMissingFile(t *testing.T) {
	if _, err := LoadProgressFromFile(filepath.Join(t.TempDir(), "nonexistent.json")); err == nil {
		t.Error("缺失文件应返回错误")
	}
}
