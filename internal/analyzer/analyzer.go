// Package analyzer invokes the containerized leakage analyzer. The contract
// is narrow: the analyzer reads one source file from a bind-mounted
// directory and writes <name>.html next to it.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jensroland/leakmap/internal/project"
)

// ErrEngineUnavailable means the container engine is installed but not
// running (or not reachable).
var ErrEngineUnavailable = errors.New("container engine is not running")

// Runner describes how to start the analyzer container.
type Runner struct {
	Engine   string // "docker" or a compatible CLI such as "podman"
	Image    string
	MountDir string // where the source directory is mounted in the container
	Timeout  time.Duration
}

// Command returns the engine arguments for analyzing path and the report
// path the analyzer will write.
func (r Runner) Command(path string) (args []string, reportPath string, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	dir, file := filepath.Split(abs)
	dir = filepath.Clean(dir)
	mount := strings.TrimSuffix(r.MountDir, "/")

	args = []string{
		"run", "--rm",
		"-v", dir + ":" + mount + ":rw",
		r.Image,
		mount + "/" + file,
		"-o",
	}
	reportPath = project.ReportPath(abs)
	return args, reportPath, nil
}

// Run analyzes path and returns the path of the HTML report.
func (r Runner) Run(ctx context.Context, path string) (string, error) {
	args, reportPath, err := r.Command(path)
	if err != nil {
		return "", err
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Engine, args...)
	cmd.WaitDelay = 2 * time.Second
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", classify(ctx, err, stderr.String(), r.Timeout)
	}

	if _, err := os.Stat(reportPath); err != nil {
		return "", fmt.Errorf("analyzer produced no report at %s", reportPath)
	}
	return reportPath, nil
}

func classify(ctx context.Context, err error, stderr string, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("analyzer timed out after %s", timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("container engine not found: %w", err)
	}
	if strings.Contains(stderr, "Cannot connect to the Docker daemon") ||
		strings.Contains(stderr, "//./pipe/docker_engine") {
		return ErrEngineUnavailable
	}
	msg := strings.TrimSpace(stderr)
	if r := []rune(msg); len(r) > 200 {
		msg = string(r[:200])
	}
	if msg == "" {
		return fmt.Errorf("analyzer failed: %w", err)
	}
	return fmt.Errorf("analyzer failed: %s", msg)
}
