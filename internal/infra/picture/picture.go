// Package picture encodes user pictures as data URIs and decodes them back.
package picture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrMalformed is returned when a value is not a base64 data URI.
	ErrMalformed = errors.New("picture: malformed data uri")
	// ErrUnknownType is returned when no file extension is known for the MIME type.
	ErrUnknownType = errors.New("picture: unknown content type")
)

const dataPrefix = "data:"

// Encode renders data as data:<contentType>;base64,<payload>.
// An empty contentType is sniffed from the bytes.
func Encode(contentType string, data []byte) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return dataPrefix + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func split(value string) (header, payload string, err error) {
	if !strings.HasPrefix(value, dataPrefix) {
		return "", "", ErrMalformed
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(value, dataPrefix), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", "", ErrMalformed
	}
	return strings.TrimSuffix(header, ";base64"), payload, nil
}

// Decode returns the raw bytes held by value.
func Decode(value string) ([]byte, error) {
	_, payload, err := split(value)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}

// MIME returns the declared content type of value.
func MIME(value string) (string, error) {
	header, _, err := split(value)
	if err != nil {
		return "", err
	}
	mime, _, _ := strings.Cut(header, ";")
	if mime == "" {
		return "", ErrMalformed
	}
	return mime, nil
}

// Extension returns the file extension, dot included, for the declared content type.
func Extension(value string) (string, error) {
	mime, err := MIME(value)
	if err != nil {
		return "", err
	}
	known := mimetype.Lookup(mime)
	if known == nil || known.Extension() == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, mime)
	}
	return known.Extension(), nil
}
