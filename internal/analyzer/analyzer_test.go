package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	r := Runner{Engine: "docker", Image: "nat2194/leakage-analysis:1.0", MountDir: "/app/leakage-analysis/test/"}

	args, reportPath, err := r.Command(filepath.Join(dir, "train.ipynb"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"run", "--rm",
		"-v", dir + ":/app/leakage-analysis/test:rw",
		"nat2194/leakage-analysis:1.0",
		"/app/leakage-analysis/test/train.ipynb",
		"-o",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v\nwant %v", args, want)
	}
	if reportPath != filepath.Join(dir, "train.html") {
		t.Errorf("reportPath = %s", reportPath)
	}
}

// fakeEngine writes a shell script standing in for the container engine.
func fakeEngine(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "engine")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_WritesReport(t *testing.T) {
	engine := fakeEngine(t, `vol="$4"; dir="${vol%%:*}"; file=$(basename "$6")
echo '<pre><span id="1">x = 1</span></pre>' > "$dir/${file%.*}.html"`)
	src := filepath.Join(t.TempDir(), "model.py")
	_ = os.WriteFile(src, []byte("x = 1\n"), 0o644)

	r := Runner{Engine: engine, Image: "img", MountDir: "/work", Timeout: 10 * time.Second}
	got, err := r.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(got)
	if err != nil || !strings.Contains(string(data), "x = 1") {
		t.Errorf("report not written: %v %q", err, data)
	}
}

func TestRun_EngineDown(t *testing.T) {
	engine := fakeEngine(t, `echo "Cannot connect to the Docker daemon at unix:///var/run/docker.sock" >&2; exit 1`)
	r := Runner{Engine: engine, Image: "img", MountDir: "/work"}
	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "a.py"))
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestRun_Failure(t *testing.T) {
	engine := fakeEngine(t, `echo "image not found" >&2; exit 3`)
	r := Runner{Engine: engine, Image: "img", MountDir: "/work"}
	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "a.py"))
	if err == nil || !strings.Contains(err.Error(), "image not found") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_NoReport(t *testing.T) {
	engine := fakeEngine(t, `exit 0`)
	r := Runner{Engine: engine, Image: "img", MountDir: "/work"}
	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "a.py"))
	if err == nil || !strings.Contains(err.Error(), "no report") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_Timeout(t *testing.T) {
	engine := fakeEngine(t, `exec sleep 5`)
	r := Runner{Engine: engine, Image: "img", MountDir: "/work", Timeout: 100 * time.Millisecond}
	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "a.py"))
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_MissingEngine(t *testing.T) {
	r := Runner{Engine: "leakmap-no-such-engine", Image: "img", MountDir: "/work"}
	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "a.py"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestClassify_TruncatesOnRuneBoundary(t *testing.T) {
	stderr := strings.Repeat("é", 300)
	err := classify(context.Background(), errors.New("exit status 1"), stderr, 0)
	msg := strings.TrimPrefix(err.Error(), "analyzer failed: ")
	if !utf8.ValidString(msg) {
		t.Fatalf("message is not valid UTF-8: %q", msg)
	}
	if got := utf8.RuneCountInString(msg); got != 200 {
		t.Errorf("message has %d runes, want 200", got)
	}
}
