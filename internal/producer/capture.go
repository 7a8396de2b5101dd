package producer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const DefaultCaptureTimeout = 2 * time.Second

// CommandCapturer runs argv once per frame and returns its stdout.
type CommandCapturer struct {
	Argv    []string
	Timeout time.Duration
}

func (c CommandCapturer) Capture(ctx context.Context) ([]byte, error) {
	if len(c.Argv) == 0 {
		return nil, errors.New("capture command is empty")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCaptureTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.WaitDelay = 250 * time.Millisecond
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("run %s: %w (%s)", c.Argv[0], err, lastLine(msg))
		}
		return nil, fmt.Errorf("run %s: %w", c.Argv[0], err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%s produced no frame data", c.Argv[0])
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// DirectoryCapturer cycles through the JPEG files of a directory in name order.
type DirectoryCapturer struct {
	Dir string

	mu    sync.Mutex
	files []string
	next  int
}

func NewDirectoryCapturer(dir string) (*DirectoryCapturer, error) {
	files, err := ListFrames(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no jpeg frames in %s", dir)
	}
	return &DirectoryCapturer{Dir: dir, files: files}, nil
}

func (c *DirectoryCapturer) Capture(context.Context) ([]byte, error) {
	c.mu.Lock()
	path := c.files[c.next]
	c.next = (c.next + 1) % len(c.files)
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return data, nil
}

// ListFrames returns the sorted *.jpg and *.jpeg paths under dir.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}
