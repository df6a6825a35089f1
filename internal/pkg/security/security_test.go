package security

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateRelativePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errType string
	}{
		{"simple", "report.json", false, ""},
		{"nested", "runs/2024/report.html", false, ""},
		{"current dir", "./report.json", false, ""},
		{"dots in name", "report.v2.json", false, ""},
		{"triple dot", "a/.../b", false, ""},

		{"empty", "", true, "empty"},
		{"null byte", "a\x00.json", true, "null byte"},
		{"traversal", "../report.json", true, "traversal"},
		{"traversal nested", "a/../../etc/passwd", true, "traversal"},
		{"absolute", "/etc/passwd", true, "absolute"},
		{"too long", strings.Repeat("a", 2000), true, "length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelativePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRelativePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err != nil && tt.errType != "" && !strings.Contains(err.Error(), tt.errType) {
				t.Errorf("ValidateRelativePath(%q) error = %v, should contain %q", tt.path, err, tt.errType)
			}
		})
	}
}

func TestJoinWithin(t *testing.T) {
	got, err := JoinWithin("/srv/reports", "a/b.json")
	if err != nil {
		t.Fatalf("JoinWithin() error = %v", err)
	}
	if want := filepath.Join("/srv/reports", "a", "b.json"); got != want {
		t.Errorf("JoinWithin() = %s, want %s", got, want)
	}

	if _, err := JoinWithin("/srv/reports", "../x"); err == nil {
		t.Error("JoinWithin() should reject traversal")
	}
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "recall@5", "recall@5"},
		{"newline", "a\nb", "a\\nb"},
		{"carriage return", "a\rb", "a\\rb"},
		{"tab", "a\tb", "a\\tb"},
		{"control", "a\x07b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.input); got != tt.expected {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}

	long := SanitizeForLogWithLength(strings.Repeat("x", 20), 5)
	if long != "xxxxx..." {
		t.Errorf("SanitizeForLogWithLength() = %q, want xxxxx...", long)
	}
}

func TestMaskSensitiveMap(t *testing.T) {
	in := map[string]any{
		"retrieval.k": 5,
		"api_key":     "abc",
		"redis_auth":  "secret",
	}

	got := MaskSensitiveMap(in)
	if got["retrieval.k"] != 5 {
		t.Errorf("retrieval.k = %v, want 5", got["retrieval.k"])
	}
	if got["api_key"] != "[REDACTED]" || got["redis_auth"] != "[REDACTED]" {
		t.Errorf("sensitive keys not masked: %v", got)
	}
	if in["api_key"] != "abc" {
		t.Error("input map was modified")
	}
	if MaskSensitiveMap(nil) != nil {
		t.Error("MaskSensitiveMap(nil) should be nil")
	}
}

func BenchmarkValidateRelativePath(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ValidateRelativePath("runs/2024/report.html")
	}
}
