// Package llm is the boundary to the hosted generative models. Callers describe a
// Prompt and get back the raw text the model produced; DecodeOutput turns that text into
// a validated struct.
package llm

import (
	"context"
	"errors"
)

// ErrNoOutput is returned when the model answered without any text.
var ErrNoOutput = errors.New("model returned no output")

type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
)

// Field is one required property of the JSON object the model must return.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	// Optional bounds, only honored by backends whose schema format supports them.
	Minimum *float64
	Maximum *float64
}

// Schema names the JSON object the model must return.
type Schema struct {
	Name   string
	Fields []Field
}

// Image is either inline bytes or a reference the model host can fetch.
type Image struct {
	MIMEType string
	Data     []byte
	URL      string
}

type Prompt struct {
	System string
	Text   string
	Images []Image
	Schema Schema
}

// Model generates one response for a prompt. Implementations do not retry.
type Model interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Float is a small helper for Field bounds.
func Float(v float64) *float64 {
	return &v
}
