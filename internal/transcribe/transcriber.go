// Package transcribe runs an external speech-to-text command over a stored
// audio file.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrEmptyTranscription = errors.New("transcription is empty")

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// DefaultArgs drive the openai-whisper command line.
var DefaultArgs = []string{
	"{input}",
	"--model", "{model}",
	"--language", "{language}",
	"--output_format", "txt",
	"--output_dir", "{outdir}",
	"--verbose", "False",
}

// CommandTranscriber runs Command with Args after substituting {input},
// {model}, {language}, {outdir} and {stem}. The result is read from
// {outdir}/{stem}.txt if the command wrote it, otherwise from stdout.
type CommandTranscriber struct {
	Command  string
	Args     []string
	Model    string
	Language string
	logger   *zap.Logger
}

func NewCommandTranscriber(command string, args []string, model, language string, logger *zap.Logger) *CommandTranscriber {
	if command == "" {
		command = "whisper"
	}
	if len(args) == 0 {
		args = DefaultArgs
	}
	if model == "" {
		model = "base"
	}
	if language == "" {
		language = "en"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandTranscriber{
		Command:  command,
		Args:     args,
		Model:    model,
		Language: language,
		logger:   logger.Named("transcribe"),
	}
}

func (t *CommandTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("audio file: %w", err)
	}
	outDir, err := os.MkdirTemp("", "ehh-transcribe-")
	if err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	r := strings.NewReplacer(
		"{input}", audioPath,
		"{model}", t.Model,
		"{language}", t.Language,
		"{outdir}", outDir,
		"{stem}", stem,
	)
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = r.Replace(a)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Info("transcribing", zap.String("audio", audioPath), zap.String("command", t.Command), zap.String("model", t.Model))
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", t.Command, err, strings.TrimSpace(stderr.String()))
	}
	t.logger.Info("transcription finished", zap.Duration("elapsed", time.Since(start)))

	text := stdout.String()
	if b, err := os.ReadFile(filepath.Join(outDir, stem+".txt")); err == nil {
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscription
	}
	return text, nil
}
