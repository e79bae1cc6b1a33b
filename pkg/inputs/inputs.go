package inputs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/bmu-balancer/core/model"
)

var (
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("inputs: missing required field")
	// ErrUnknownReference is returned when an id does not resolve.
	ErrUnknownReference = errors.New("inputs: unknown reference")
	// ErrDuplicateID is returned when two records of a collection share an id.
	ErrDuplicateID = errors.New("inputs: duplicate id")
	// ErrNaiveTimestamp is returned for timestamps without a UTC offset.
	ErrNaiveTimestamp = errors.New("inputs: timestamp has no offset")
	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("inputs: unsupported format")
)

// Format is the encoding of an input document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// Loader reads input documents.
type Loader struct {
	// Now supplies the execution time of documents without one. Nil
	// makes the execution time required.
	Now func() time.Time
}

// Load reads the document at path using the default loader, which takes
// the current time when the document has no execution time.
func Load(path string) (model.InputData, error) {
	return Loader{Now: time.Now}.Load(path)
}

// Load reads and resolves the document at path.
func (l Loader) Load(path string) (model.InputData, error) {
	format, err := FormatOf(path)
	if err != nil {
		return model.InputData{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return model.InputData{}, err
	}
	defer func() { _ = f.Close() }()
	data, err := l.Decode(f, format)
	if err != nil {
		return model.InputData{}, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// Decode reads a document from r and resolves it.
func (l Loader) Decode(r io.Reader, format Format) (model.InputData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return model.InputData{}, err
	}
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
	default:
		return model.InputData{}, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	if err != nil {
		return model.InputData{}, fmt.Errorf("decode %s: %w", format, err)
	}
	return l.Resolve(doc)
}

// parseTime accepts RFC 3339 timestamps and rejects naive ones.
func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04"} {
		if _, nerr := time.Parse(layout, s); nerr == nil {
			return time.Time{}, fmt.Errorf("%s %q: %w", field, s, ErrNaiveTimestamp)
		}
	}
	return time.Time{}, fmt.Errorf("%s: %w", field, err)
}

func requiredTime(field string, s *string) (time.Time, error) {
	if s == nil {
		return time.Time{}, missing(field)
	}
	return parseTime(field, *s)
}

func missing(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}
