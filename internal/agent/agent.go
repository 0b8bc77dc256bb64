// Package agent holds the writer and reviewer stages. Each stage is a fixed
// prompt contract around one retried completion call.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/bookflow/internal/llm"
	"github.com/hyperjump/bookflow/internal/retry"
)

const writerPrompt = "You are an expert fiction author with a knack for modernizing classic prose. " +
	"Your task is to rewrite the chapter provided by the user. " +
	"Instructions: " +
	"1. Style: Change the style to be more modern, fast-paced, and descriptive. Use vivid language. " +
	"2. Preserve Core: Do NOT change the plot, characters, settings, or key events. " +
	"3. Meaning: Retain the original meaning and narrative arc. " +
	"4. Output: Provide only the full rewritten chapter text. Do not add any commentary or introductions."

const reviewerPrompt = "You are a meticulous book editor. You have been given an original chapter and a rewritten version of it. " +
	"Your task is to refine the rewritten version. " +
	"Instructions: " +
	"1. Compare: Read both the original and the rewritten text carefully. " +
	"2. Fact-Check: Ensure the rewritten version has not lost any key plot points, character details, or settings from the original. " +
	"3. Improve Flow: Correct any grammatical errors, awkward phrasing, or stylistic inconsistencies in the rewritten version. Make it read more smoothly. " +
	"4. Final Output: Provide only the final, polished text of the reviewed chapter. Do not add any extra commentary."

// Result is a stage outcome tagged with the model that produced it.
type Result struct {
	retry.Result
	Model string
}

// Writer rewrites a chapter in a modern style.
type Writer struct {
	llm     llm.Completer
	retrier *retry.Retrier
	logger  *zap.Logger
}

// NewWriter creates the writer stage.
func NewWriter(completer llm.Completer, retrier *retry.Retrier, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{llm: completer, retrier: retrier, logger: logger.Named("writer")}
}

// Spin rewrites original. Failures are returned in the result, unchanged.
func (w *Writer) Spin(ctx context.Context, original string) Result {
	w.logger.Info("spinning chapter", zap.Int("chars", len(original)))
	res := w.retrier.Do(ctx, func(ctx context.Context) (string, error) {
		return w.llm.Complete(ctx, writerPrompt, original)
	})
	logOutcome(w.logger, res)
	return Result{Result: res, Model: w.llm.Model()}
}

// Reviewer checks a rewrite against its original and polishes it.
type Reviewer struct {
	llm     llm.Completer
	retrier *retry.Retrier
	logger  *zap.Logger
}

// NewReviewer creates the reviewer stage.
func NewReviewer(completer llm.Completer, retrier *retry.Retrier, logger *zap.Logger) *Reviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{llm: completer, retrier: retrier, logger: logger.Named("reviewer")}
}

// Review refines spun using original as the reference.
func (r *Reviewer) Review(ctx context.Context, original, spun string) Result {
	r.logger.Info("reviewing chapter", zap.Int("chars", len(spun)))
	res := r.retrier.Do(ctx, func(ctx context.Context) (string, error) {
		return r.llm.Complete(ctx, reviewerPrompt, ReviewInput(original, spun))
	})
	logOutcome(r.logger, res)
	return Result{Result: res, Model: r.llm.Model()}
}

// ReviewInput formats the reviewer's user message.
func ReviewInput(original, spun string) string {
	return fmt.Sprintf("**Original Text:**\n---\n%s\n---\n\n**Rewritten Text to Review:**\n---\n%s\n---", original, spun)
}

func logOutcome(logger *zap.Logger, res retry.Result) {
	if res.OK() {
		logger.Info("stage succeeded", zap.Int("attempts", res.Attempts))
		return
	}
	logger.Error("stage failed", zap.Int("attempts", res.Attempts), zap.Error(res.Err))
}
