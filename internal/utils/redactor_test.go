package utils

import (
	"net/http"
	"strings"
	"testing"
)

func TestHeaderRedactor_IsSensitiveHeader(t *testing.T) {
	redactor := NewHeaderRedactor()

	tests := []struct {
		name       string
		headerName string
		expected   bool
	}{
		{"Authorization-敏感", "Authorization", true},
		{"X-Api-Key-敏感", "X-Api-Key", true},
		{"X-Secret-Token-敏感", "X-Secret-Token", true},
		{"Cookie-敏感", "Cookie", true},
		{"cookie-不区分大小写", "cookie", true},
		{"User-Agent-非敏感", "User-Agent", false},
		{"Accept-非敏感", "Accept", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := redactor.IsSensitiveHeader(tt.headerName)
			if result != tt.expected {
				t.Errorf("期望=%v, 实际=%v", tt.expected, result)
			}
		})
	}
}

func TestHeaderRedactor_RedactHeaderValue(t *testing.T) {
	redactor := NewHeaderRedactor()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expected    string
	}{
		{"非敏感头部原样返回", "User-Agent", "Mozilla/5.0", "Mozilla/5.0"},
		{"Bearer Token只留前缀", "Authorization", "Bearer abc123def456", "Bearer ***"},
		{"长密钥显示首尾", "X-Api-Key", "sk-1234567890abcdef", "sk-1***cdef"},
		{"短密钥完全隐藏", "X-Api-Key", "short", "***"},
		{"Cookie脱敏", "Cookie", "session=abc123; theme=dark", "sess***dark"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := redactor.RedactHeaderValue(tt.headerName, tt.headerValue)
			if result != tt.expected {
				t.Errorf("期望=%q, 实际=%q", tt.expected, result)
			}
		})
	}
}

func TestHeaderRedactor_Redact(t *testing.T) {
	redactor := NewHeaderRedactor()

	headers := http.Header{
		"User-Agent":    []string{"Mozilla/5.0"},
		"Authorization": []string{"Bearer secret-token"},
		"Cookie":        []string{"session=abcdef123456"},
	}

	result := redactor.Redact(headers)
	if result["User-Agent"] != "Mozilla/5.0" {
		t.Errorf("非敏感头部被改动: %q", result["User-Agent"])
	}
	if result["Authorization"] != "Bearer ***" {
		t.Errorf("Authorization未脱敏: %q", result["Authorization"])
	}
	if strings.Contains(result["Cookie"], "abcdef123456") {
		t.Errorf("Cookie值泄漏: %q", result["Cookie"])
	}
}

func TestHeaderRedactor_RedactToString(t *testing.T) {
	redactor := NewHeaderRedactor()

	headers := http.Header{
		"Authorization": []string{"Bearer secret-token"},
	}

	s := redactor.RedactToString(headers)
	if strings.Contains(s, "secret-token") {
		t.Errorf("日志字符串泄漏密钥: %q", s)
	}
	if !strings.Contains(s, "Authorization: Bearer ***") {
		t.Errorf("格式错误: %q", s)
	}
}
