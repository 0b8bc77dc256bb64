// Package transcribe turns uploaded audio into text for voice search.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/bookflow/internal/errs"
	"github.com/hyperjump/bookflow/internal/llm"
)

const (
	DefaultModel = "whisper-large-v3"
	serviceName  = "transcription"
)

// Transcriber converts the audio file at path to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Config configures WhisperTranscriber.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// WhisperTranscriber calls an OpenAI-compatible transcription endpoint. It is
// created once at startup and released with Close.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates the transcriber. A missing API key is a configuration error.
func New(cfg Config, logger *zap.Logger) (*WhisperTranscriber, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errs.Configuration("transcription API key is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = llm.DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	logger.Info("transcriber ready", zap.String("model", cfg.Model))
	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Transcribe implements Transcriber.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return "", errs.RemoteService(serviceName, fmt.Errorf("transcriber is closed"))
	}
	w.logger.Info("transcribing audio", zap.String("file", filepath.Base(path)))
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
	})
	if err != nil {
		if llm.IsRateLimited(err) {
			return "", errs.TransientRemote(serviceName, err)
		}
		return "", errs.RemoteService(serviceName, err)
	}
	return resp.Text, nil
}

// Close releases the transcriber; later calls fail.
func (w *WhisperTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// Service handles uploaded audio.
type Service struct {
	transcriber Transcriber
	tempDir     string
	logger      *zap.Logger
}

// NewService creates a Service. tempDir "" uses the system temp dir.
func NewService(t Transcriber, tempDir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{transcriber: t, tempDir: tempDir, logger: logger}
}

// TranscribeUpload stores the upload in a temporary file, transcribes it and
// removes the file whatever the outcome. An empty transcript is an error.
func (s *Service) TranscribeUpload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if s.tempDir != "" {
		if err := os.MkdirAll(s.tempDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create temp dir: %w", err)
		}
	}
	f, err := os.CreateTemp(s.tempDir, "voice-*"+filepath.Ext(filepath.Base(filename)))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove temp audio", zap.String("path", path), zap.Error(err))
			return
		}
		s.logger.Debug("removed temp audio", zap.String("path", path))
	}()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	text, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		s.logger.Error("transcription failed", zap.Error(err))
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errs.EmptyResult(serviceName)
	}
	s.logger.Info("transcription succeeded", zap.String("text", text))
	return text, nil
}
