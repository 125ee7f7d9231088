package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, expectedAll},
		{"read all (negative)", -1, expectedAll},
		{"read partial (5)", 5, expectedAll[5:]},
		{"read exactly all (10)", 10, expectedAll},
		{"read more than exists (20)", 20, expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read() = %v, %v; want nil, nil", got, err)
	}
}

func TestParse(t *testing.T) {
	line := `{"level":"info","ts":"2026-10-17T09:30:00.000Z","msg":"request accepted","namespace":"tanker","store":"pool","request":"req-3","litres":500}`
	e, ok := Parse(line)
	if !ok {
		t.Fatal("Parse() ok = false")
	}
	if e.Level != "INFO" || e.Message != "request accepted" || e.Store != "pool" {
		t.Fatalf("entry = %#v", e)
	}
	if !e.Time.Equal(time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("time = %v", e.Time)
	}
	want := map[string]string{"request": "req-3", "litres": "500"}
	if !reflect.DeepEqual(e.Fields, want) {
		t.Fatalf("fields = %#v, want %#v", e.Fields, want)
	}
}

func TestParse_PlainText(t *testing.T) {
	e, ok := Parse("  panic: boom  ")
	if ok {
		t.Fatal("Parse() ok = true for plain text")
	}
	if e.Message != "panic: boom" {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestEntries_SkipsBlankLines(t *testing.T) {
	got := Entries([]string{`{"msg":"a"}`, "", "  ", "plain"})
	if len(got) != 2 || got[0].Message != "a" || got[1].Message != "plain" {
		t.Fatalf("Entries() = %#v", got)
	}
}

func TestFormat(t *testing.T) {
	e := Entry{
		Level:   "WARN",
		Store:   "location",
		Message: "address reply has no usable list",
		Fields:  map[string]string{"uid": "u1", "attempt": "2"},
	}
	want := "WARN  [location] address reply has no usable list attempt=2 uid=u1"
	if got := Format(e); got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestReadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tanker.log")
	lines := `{"level":"info","msg":"one"}` + "\n" + `{"level":"error","msg":"two","error":"boom"}` + "\n"
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadEntries(path, 1)
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if len(got) != 1 || got[0].Level != "ERROR" || got[0].Fields["error"] != "boom" {
		t.Fatalf("ReadEntries() = %#v", got)
	}
}
