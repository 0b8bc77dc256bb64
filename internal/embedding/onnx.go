//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// ONNXEmbedder embeds chapters with a BERT-style model run through ONNX Runtime.
// A chapter longer than one model input is cut into windows whose outputs are
// averaged, weighted by the words each window carries.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	modelPath  string
	dimensions int
	maxTokens  int
	cache      *EmbeddingCache
	logger     *zap.Logger

	// Run reads these tensors in place; mu serialises window writes.
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXEmbedder loads the model at modelPath. Each window holds maxTokens
// token slots.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int, logger *zap.Logger) (*ONNXEmbedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTokens < 3 {
		maxTokens = 256
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	e := &ONNXEmbedder{
		modelPath:  modelPath,
		dimensions: dimensions,
		maxTokens:  maxTokens,
		cache:      NewEmbeddingCache(cacheSize),
		logger:     logger,
	}
	shape := ort.NewShape(1, int64(maxTokens))
	var err error
	if e.inputIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	if e.attentionMask, err = ort.NewEmptyTensor[int64](shape); err != nil {
		e.Close()
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		e.Close()
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	if e.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions))); err != nil {
		e.Close()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{e.inputIDs, e.attentionMask, e.tokenTypeIDs},
		[]ort.ArbitraryTensor{e.output},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("create onnx session for %s: %w", modelPath, err)
	}
	return e, nil
}

// Embed returns the unit-length embedding of a chapter, from cache when possible.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	windows, truncated := chapterWindows(text, e.maxTokens)
	if truncated > 0 {
		e.logger.Warn("chapter longer than embedding budget, tail ignored",
			zap.Int("windows", len(windows)), zap.Int("dropped_words", truncated))
	}

	sum := make([]float32, e.dimensions)
	var weight float32
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := e.run(w)
		if err != nil {
			return nil, err
		}
		// A marker-only window (empty chapter) still counts once.
		wt := float32(w.words)
		if wt == 0 {
			wt = 1
		}
		for i := range sum {
			sum[i] += out[i] * wt
		}
		weight += wt
	}
	for i := range sum {
		sum[i] /= weight
	}
	normalize(sum)
	e.cache.Set(text, sum)
	return sum, nil
}

func (e *ONNXEmbedder) run(w window) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	copy(e.inputIDs.GetData(), w.inputIDs)
	copy(e.attentionMask.GetData(), w.attentionMask)
	copy(e.tokenTypeIDs.GetData(), w.tokenTypeIDs)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	out := make([]float32, e.dimensions)
	copy(out, e.output.GetData())
	return out, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Name is "onnx:" plus the model file name without its extension.
func (e *ONNXEmbedder) Name() string {
	return "onnx:" + strings.TrimSuffix(filepath.Base(e.modelPath), filepath.Ext(e.modelPath))
}

// Close releases the session and its tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDs, e.attentionMask, e.tokenTypeIDs} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if e.output != nil {
		_ = e.output.Destroy()
	}
	e.inputIDs, e.attentionMask, e.tokenTypeIDs, e.output = nil, nil, nil, nil
	return err
}
