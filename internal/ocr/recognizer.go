// Package ocr turns shipping-label images into text and reconciles that
// text against open orders. The reconciler consumes text only; how the
// text was produced is behind the Recognizer interface.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Recognizer extracts raw text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Runner lets us stub the external command in tests.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		slog.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10), // cap at 8KB
		)
	} else {
		slog.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// TesseractConfig configures the tesseract-based recognizer.
type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "chi_tra+eng"
	TessdataDir string
}

// Tesseract recognizes images by piping them to the tesseract binary.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
}

func NewTesseract(cfg TesseractConfig) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "chi_tra+eng"
	}
	return &Tesseract{cfg: cfg, runner: execRunner{}}
}

// Recognize runs `tesseract - stdout -l <lang>` with the image on stdin.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	args := []string{"-", "stdout", "-l", t.cfg.Lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, image, t.cfg.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 256))
	}
	return string(out), nil
}
