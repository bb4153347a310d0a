package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func writeURLFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadURLsFromFile(t *testing.T) {
	t.Run("跳过空行注释和无效URL", func(t *testing.T) {
		path := writeURLFile(t, `# 注释行
https://example.com/a

not-a-url
ftp://example.com/file
https://example.com/b
`)
		urls, err := ReadURLsFromFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(urls) != 2 {
			t.Fatalf("URL数 = %d, 期望 2: %v", len(urls), urls)
		}
		if urls[0] != "https://example.com/a" || urls[1] != "https://example.com/b" {
			t.Errorf("URL顺序错误: %v", urls)
		}
	})

	t.Run("无有效URL时报错", func(t *testing.T) {
		path := writeURLFile(t, "# 只有注释\n\nnot-a-url\n")
		if _, err := ReadURLsFromFile(path); err == nil {
			t.Error("期望返回错误")
		}
	})

	t.Run("文件不存在时报错", func(t *testing.T) {
		if _, err := ReadURLsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
			t.Error("期望返回错误")
		}
	})
}
