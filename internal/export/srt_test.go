package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cutroom/renderd/internal/overlay"
)

func TestGenerateSRT(t *testing.T) {
	cues := []overlay.Cue{
		{StartSec: 0, EndSec: 2.5, Text: "first line"},
		{StartSec: 3661.25, EndSec: 3662, Text: "second line"},
	}

	got := GenerateSRT(cues)
	want := strings.Join([]string{
		"1",
		"00:00:00,000 --> 00:00:02,500",
		"first line",
		"",
		"2",
		"01:01:01,250 --> 01:01:02,000",
		"second line",
		"",
	}, "\n")
	if got != want {
		t.Errorf("GenerateSRT mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateSRTEmpty(t *testing.T) {
	if got := GenerateSRT(nil); got != "" {
		t.Errorf("expected empty document, got %q", got)
	}
}

func TestSecToTimestamp(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.001, "00:01:01,001"},
		{-3, "00:00:00,000"},
		{0.0004, "00:00:00,000"},
		{0.0006, "00:00:00,001"},
	}
	for _, tc := range cases {
		if got := secToTimestamp(tc.sec); got != tc.want {
			t.Errorf("secToTimestamp(%v) = %q, want %q", tc.sec, got, tc.want)
		}
	}
}

func TestWriteSRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs", "out.srt")
	cues := []overlay.Cue{{StartSec: 0, EndSec: 1, Text: "hello"}}

	if err := WriteSRT(path, cues); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("written file missing cue text: %q", string(data))
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain name", "plain name"},
		{"slash/and\\colon:", "slash_and_colon_"},
		{"control\x00char", "controlchar"},
		{"  padded  ", "padded"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in, 0); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if got := SanitizeName("abcdefgh", 4); got != "abcd" {
		t.Errorf("truncation failed: %q", got)
	}
}

func TestValidateOutputDir(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateOutputDir(dir); err != nil {
		t.Errorf("valid dir rejected: %v", err)
	}
	if err := ValidateOutputDir(""); err == nil {
		t.Error("empty dir accepted")
	}
	if err := ValidateOutputDir(filepath.Join(dir, "..", "escape")); err == nil {
		t.Error("traversal accepted")
	}
	if err := ValidateOutputDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("missing dir accepted")
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateOutputDir(file); err == nil {
		t.Error("regular file accepted as dir")
	}
}
