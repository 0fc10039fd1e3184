package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jensroland/leakmap/internal/report"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTempFile(t, "leakmap.yaml", `
analyzer:
  engine: podman
  image: example/leakage:2.0
  timeout: 90s
report:
  comment_classes: [c1, comment]
cache:
  enabled: false
jobs: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analyzer.Engine != "podman" || cfg.Analyzer.Image != "example/leakage:2.0" {
		t.Errorf("analyzer = %+v", cfg.Analyzer)
	}
	if cfg.Analyzer.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Analyzer.Timeout)
	}
	if cfg.Analyzer.MountDir != DefaultMountDir {
		t.Errorf("MountDir should keep its default, got %q", cfg.Analyzer.MountDir)
	}
	if !reflect.DeepEqual(cfg.Report.CommentClasses, []string{"c1", "comment"}) {
		t.Errorf("CommentClasses = %v", cfg.Report.CommentClasses)
	}
	if cfg.Cache.Enabled || cfg.Jobs != 2 {
		t.Errorf("cache/jobs = %+v / %d", cfg.Cache, cfg.Jobs)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/leakmap.yaml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "invalid.yaml", `invalid: yaml: content: [`)
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty image", "analyzer:\n  image: ''\n", "analyzer.image"},
		{"relative mount", "analyzer:\n  mount_dir: work\n", "analyzer.mount_dir"},
		{"no comment classes", "report:\n  comment_classes: []\n", "report.comment_classes"},
		{"bad class", "report:\n  comment_classes: ['c 1']\n", "comment_classes[0]"},
		{"zero jobs", "jobs: 0\n", "jobs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "c.yaml", tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvImage, "mirror/leakage:1.0")
	t.Setenv(EnvCacheDir, "/tmp/leakmap-cache")
	t.Setenv(EnvJobs, "3")

	path := writeTempFile(t, "c.yaml", "analyzer:\n  image: file/image\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Analyzer.Image != "mirror/leakage:1.0" || cfg.Cache.Dir != "/tmp/leakmap-cache" || cfg.Jobs != 3 {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	t.Setenv(EnvJobs, "many")
	if _, err := Load(path); err == nil {
		t.Error("expected error for non-numeric jobs")
	}
}

func TestResolve_Defaults(t *testing.T) {
	wd, _ := os.Getwd()
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Analyzer.Image != DefaultImage || !cfg.Cache.Enabled {
		t.Errorf("defaults not used: %+v", cfg)
	}

	_ = os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("jobs: 5\n"), 0o644)
	cfg, err = Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Jobs != 5 {
		t.Errorf("expected %s in the working directory to be read, jobs=%d", DefaultFileName, cfg.Jobs)
	}
}

func TestDefaultConfig_CommentClasses(t *testing.T) {
	cfg := DefaultConfig()
	if !reflect.DeepEqual(cfg.Report.CommentClasses, report.DefaultCommentClasses) {
		t.Errorf("CommentClasses = %v, want %v", cfg.Report.CommentClasses, report.DefaultCommentClasses)
	}
	cfg.Report.CommentClasses[0] = "changed"
	if report.DefaultCommentClasses[0] == "changed" {
		t.Error("DefaultConfig shares its slice with report.DefaultCommentClasses")
	}
}
