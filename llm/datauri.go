package llm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrInvalidDataURI = errors.New("invalid data URI")

// DataURI is a decoded data:<mime>;base64,<payload> URI.
type DataURI struct {
	// MIMEType is sniffed from the payload. The declared type only has to be an image type.
	MIMEType string
	// Extension includes the leading dot.
	Extension string
	Data      []byte
}

// ParseDataURI decodes s and requires the payload to be an image.
func ParseDataURI(s string) (*DataURI, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURI)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidDataURI)
	}
	declared, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, fmt.Errorf("%w: payload must be base64 encoded", ErrInvalidDataURI)
	}
	if !strings.HasPrefix(declared, "image/") {
		return nil, fmt.Errorf("%w: declared type %q is not an image", ErrInvalidDataURI, declared)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("%w: payload is %s, not an image", ErrInvalidDataURI, mime.String())
	}

	return &DataURI{MIMEType: mime.String(), Extension: mime.Extension(), Data: data}, nil
}

func (d *DataURI) String() string {
	return "data:" + d.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}
