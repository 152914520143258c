package summarization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-beachwise/llm"
	"go-beachwise/logger"
	"go-beachwise/types"

	"go.uber.org/zap"
)

const systemPrompt = "You are an assistant that summarizes beach cleanups concisely."

const summaryPrompt = `You are summarizing a beach cleanup. The volunteer photographed every piece of trash they collected.
Describe what was collected, the most common kinds of trash and anything notable. Keep it to 2-3 sentences.

Images:
%s`

var (
	ErrNoImages           = errors.New("at least one image is required to summarize a cleanup")
	ErrSummaryUnavailable = errors.New("summary unavailable")
)

var outputSchema = llm.Schema{
	Name: "cleanup_summary",
	Fields: []llm.Field{
		{Name: "summary", Type: llm.FieldString, Description: "A short summary of the cleanup."},
	},
}

type modelOutput struct {
	Summary string `json:"summary" validate:"notblank"`
}

type Summarizer struct {
	model llm.Model
}

func New(model llm.Model) *Summarizer {
	return &Summarizer{model: model}
}

// Summarize asks the model for a summary of the cleanup photographed in imageRefs.
// The refs keep their order in the prompt.
func (s *Summarizer) Summarize(ctx context.Context, imageRefs []string) (types.SummarizeCleanupOutput, error) {
	if len(imageRefs) == 0 {
		return types.SummarizeCleanupOutput{}, ErrNoImages
	}

	// 1. Attach every ref, inline when it is a data URI
	images := make([]llm.Image, 0, len(imageRefs))
	for _, ref := range imageRefs {
		if d, err := llm.ParseDataURI(ref); err == nil {
			images = append(images, llm.Image{MIMEType: d.MIMEType, Data: d.Data})
			continue
		}
		images = append(images, llm.Image{URL: ref})
	}

	// 2. Call the model
	raw, err := s.model.Generate(ctx, llm.Prompt{
		System: systemPrompt,
		Text:   fmt.Sprintf(summaryPrompt, listRefs(imageRefs)),
		Images: images,
		Schema: outputSchema,
	})
	if err != nil {
		logger.Log.Warn("Cleanup summary call failed", zap.Error(err))
		return types.SummarizeCleanupOutput{}, fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
	}

	var out modelOutput
	if err := llm.DecodeOutput(raw, &out); err != nil {
		logger.Log.Warn("Unusable cleanup summary output", zap.Error(err))
		return types.SummarizeCleanupOutput{}, fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
	}

	return types.SummarizeCleanupOutput{Summary: strings.TrimSpace(out.Summary)}, nil
}

// Data URIs are listed by position only, their bytes travel as images.
func listRefs(refs []string) string {
	var b strings.Builder
	for i, ref := range refs {
		if strings.HasPrefix(ref, "data:") {
			ref = "attached image"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, ref)
	}
	return b.String()
}
