package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/render"
)

// FixedTime is the clock used by fixtures: 22 December 2024, 10:30 UTC.
var FixedTime = time.Date(2024, time.December, 22, 10, 30, 0, 0, time.UTC)

// Clock returns a time source pinned to FixedTime.
func Clock() func() time.Time {
	return func() time.Time { return FixedTime }
}

// SequenceIDs issues predictable order numbers: prefix followed by 1, 2, 3...
type SequenceIDs struct {
	Prefix string
	next   atomic.Int64
}

// NextID returns the next order number in the sequence.
func (s *SequenceIDs) NextID() string {
	return fmt.Sprintf("%s%d", s.Prefix, s.next.Add(1))
}

// OrderFields returns the collected values of a basic one-item order
// (price 250.00, quantity 1, no taxes). Overrides replace or add entries.
func OrderFields(overrides map[string]string) map[string]string {
	fields := map[string]string{
		model.FieldBrand:    "Nike",
		model.FieldProduct:  "Air Jordan 1",
		model.FieldSize:     "42",
		model.FieldPrice:    "250.00",
		model.FieldEmail:    "buyer@example.com",
		model.FieldDate:     "22/12/2024",
		model.FieldImageURL: "https://i.imgur.com/abc123.jpg",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return fields
}

// LoadAnswers reads a YAML mapping of field ids to answers.
func LoadAnswers(path string) (map[string]string, error) {
	if path == "" {
		return nil, errors.New("testsupport: answers path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read answers: %w", err)
	}
	return render.ParseAnswers(data)
}

// MustLoadAnswers is LoadAnswers for tests.
func MustLoadAnswers(t *testing.T, path string) map[string]string {
	t.Helper()

	answers, err := LoadAnswers(path)
	if err != nil {
		t.Fatalf("load answers: %v", err)
	}
	return answers
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput executes a render function that writes to an
// io.Writer, returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
