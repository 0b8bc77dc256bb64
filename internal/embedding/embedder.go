// Package embedding turns document text into vectors for nearest-neighbour search.
package embedding

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Name identifies the embedding model; stored vectors from another model are stale.
	Name() string
	Close() error
}

// Options configures New.
type Options struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
}

// New returns an ONNX embedder when the runtime and model are available and a
// deterministic hash embedder otherwise. The fallback is logged at warn level
// because hash vectors only match identical wording.
func New(opts Options, logger *zap.Logger) Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	onnx, err := loadONNX(opts, logger)
	if err != nil {
		logger.Warn("onnx embedder unavailable, using hash embedder",
			zap.String("model_path", opts.ModelPath), zap.Error(err))
		return NewHashEmbedder(opts.Dimensions)
	}
	logger.Info("onnx embedder loaded", zap.String("model_path", opts.ModelPath), zap.Int("dimensions", opts.Dimensions))
	return onnx
}

// loadONNX checks the model file before starting the runtime so a missing
// model is reported the same way with and without cgo.
func loadONNX(opts Options, logger *zap.Logger) (*ONNXEmbedder, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("no embedding model configured")
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}
	return NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens, opts.CacheSize, logger)
}

func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
