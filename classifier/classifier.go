package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go-beachwise/llm"
	"go-beachwise/logger"
	"go-beachwise/types"

	"go.uber.org/zap"
)

const systemPrompt = "You are an expert in identifying beach trash."

const classifyPrompt = `Analyze the image and identify the type of trash in it.
Provide the trash type as a short noun phrase, for example "Plastic Bottle", "Cigarette Butt" or "Fishing Net".
Estimate your confidence in the classification as a number between 0.0 and 1.0.`

var (
	// ErrClassificationUnavailable matches every ClassificationError.
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrInvalidPhoto              = errors.New("photo must be a base64 encoded image data URI")
)

type ErrorKind int

const (
	// NoOutput: the model could not be reached or answered with nothing.
	NoOutput ErrorKind = iota + 1
	// SchemaViolation: the model answered with something that is not a classification.
	SchemaViolation
)

func (k ErrorKind) String() string {
	switch k {
	case NoOutput:
		return "NoOutput"
	case SchemaViolation:
		return "SchemaViolation"
	default:
		return "Unknown"
	}
}

type ClassificationError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed (%s): %v", e.Kind, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

func (e *ClassificationError) Is(target error) bool {
	return target == ErrClassificationUnavailable
}

var outputSchema = llm.Schema{
	Name: "trash_classification",
	Fields: []llm.Field{
		{Name: "trashType", Type: llm.FieldString, Description: "The type of trash identified in the image."},
		{Name: "confidence", Type: llm.FieldNumber, Description: "Confidence in the classification, from 0.0 to 1.0.",
			Minimum: llm.Float(0), Maximum: llm.Float(1)},
	},
}

type modelOutput struct {
	TrashType  string   `json:"trashType" validate:"required,notblank"`
	Confidence *float64 `json:"confidence" validate:"required"`
}

// Classifier identifies the kind of trash in a photo.
type Classifier struct {
	model llm.Model
}

func New(model llm.Model) *Classifier {
	return &Classifier{model: model}
}

// Classify sends one photo to the model. It does not retry.
func (c *Classifier) Classify(ctx context.Context, input types.ClassifyTrashInput) (types.ClassifyTrashOutput, error) {
	photo, err := llm.ParseDataURI(input.PhotoDataURI)
	if err != nil {
		return types.ClassifyTrashOutput{}, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}

	raw, err := c.model.Generate(ctx, llm.Prompt{
		System: systemPrompt,
		Text:   classifyPrompt,
		Images: []llm.Image{{MIMEType: photo.MIMEType, Data: photo.Data}},
		Schema: outputSchema,
	})
	if err != nil {
		logger.Log.Warn("Trash classification call failed", zap.Error(err))
		return types.ClassifyTrashOutput{}, &ClassificationError{Kind: NoOutput, Err: err}
	}

	var out modelOutput
	if err := llm.DecodeOutput(raw, &out); err != nil {
		kind := SchemaViolation
		if errors.Is(err, llm.ErrNoOutput) {
			kind = NoOutput
		}
		logger.Log.Warn("Unusable classification output", zap.String("kind", kind.String()), zap.Error(err))
		return types.ClassifyTrashOutput{}, &ClassificationError{Kind: kind, Err: err}
	}

	return types.ClassifyTrashOutput{
		TrashType:  strings.TrimSpace(out.TrashType),
		Confidence: Clamp(*out.Confidence),
	}, nil
}

// Clamp forces a model confidence into [0, 1]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
