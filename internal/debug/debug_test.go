package debug

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func readLog(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	return string(data)
}

func TestLog(t *testing.T) {
	t.Run("writes_timestamp_and_message", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")
		Log(dir, "test.log", "hello world", nil)

		content := readLog(t, dir)
		if !strings.Contains(content, "hello world") {
			t.Errorf("log should contain message, got: %s", content)
		}
		if !strings.Contains(content, "====") {
			t.Errorf("log should contain separator, got: %s", content)
		}
	})

	t.Run("appends_json_when_data_non_nil", func(t *testing.T) {
		dir := t.TempDir()
		Log(dir, "test.log", "with data", map[string]int{"unmatched": 3})

		content := readLog(t, dir)
		if !strings.Contains(content, `"unmatched": 3`) {
			t.Errorf("log should contain JSON data, got: %s", content)
		}
	})

	t.Run("no_json_block_when_data_nil", func(t *testing.T) {
		dir := t.TempDir()
		Log(dir, "test.log", "nil data", nil)

		if content := readLog(t, dir); strings.Contains(content, "{") {
			t.Errorf("log should not contain JSON block for nil data, got: %s", content)
		}
	})

	t.Run("concurrent_writers_do_not_interleave", func(t *testing.T) {
		dir := t.TempDir()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				Log(dir, "test.log", "entry", map[string]string{"k": "v"})
			}()
		}
		wg.Wait()

		entries, err := Entries(dir, "test.log", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 20 {
			t.Fatalf("expected 20 entries, got %d", len(entries))
		}
		for _, e := range entries {
			if strings.Count(e, "entry") != 1 {
				t.Errorf("interleaved entry: %q", e)
			}
		}
	})
}

func TestTail(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "test.log"), []byte("a\nb\nc\n"), 0o644)

	got, err := Tail(dir, "test.log", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Tail = %v", got)
	}
	if _, err := Tail(dir, "missing.log", 2); err == nil {
		t.Error("expected error for missing log")
	}
}

func TestEntries(t *testing.T) {
	dir := t.TempDir()
	Log(dir, "test.log", "first", nil)
	Log(dir, "test.log", "second", nil)
	Log(dir, "test.log", "third", nil)

	got, err := Entries(dir, "test.log", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !strings.HasSuffix(got[0], "second") || !strings.HasSuffix(got[1], "third") {
		t.Errorf("Entries = %q", got)
	}
}
