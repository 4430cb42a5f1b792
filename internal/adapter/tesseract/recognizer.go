// Package tesseract recognizes recipe text in images with the tesseract CLI.
package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
)

// Runner executes a command with stdin and returns its stdout.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Recognizer implements repository.TextRecognizer.
type Recognizer struct {
	bin    string
	lang   string
	runner Runner
	logger *zap.Logger
}

// NewRecognizer creates a recognizer running bin (default "tesseract") with
// language lang (default "eng"). runner may be nil to execute the binary.
func NewRecognizer(bin, lang string, runner Runner, logger *zap.Logger) *Recognizer {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &Recognizer{bin: bin, lang: lang, runner: runner, logger: logger.Named("tesseract")}
}

func (r *Recognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", entity.NewStructuralError("the uploaded image is empty", nil)
	}
	out, err := r.runner.Run(ctx, image, r.bin, "stdin", "stdout", "-l", r.lang)
	if err != nil {
		if ctx.Err() != nil {
			return "", entity.NewTransientError("text recognition timed out", ctx.Err())
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", entity.NewExtractionError("text recognition is not available on this server", err)
		}
		r.logger.Warn("Text recognition failed", zap.Error(err))
		return "", entity.NewExtractionError("the image could not be read", err)
	}
	return strings.TrimSpace(string(out)), nil
}
