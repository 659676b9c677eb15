package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendToFileCreatesDirectory(t *testing.T) {
	p := filepath.Join(t.TempDir(), "traces", "exp_0.jsonl")
	if err := AppendToFile(p, "a", "b"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := AppendToFile(p, "c"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	bs, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	lines := strings.Split(strings.TrimSpace(string(bs)), "\n")
	if len(lines) != 3 || lines[2] != "c" {
		t.Errorf("unexpected contents: %q", lines)
	}
}

func TestWriteJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "data.json")
	if err := WriteJSON(p, map[string]int{"episodes": 3}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	bs, _ := os.ReadFile(p)
	out := make(map[string]int)
	if err := json.Unmarshal(bs, &out); err != nil {
		t.Fatalf("invalid json: %s", err)
	}
	if out["episodes"] != 3 {
		t.Errorf("expected 3 episodes, got %d", out["episodes"])
	}
}
