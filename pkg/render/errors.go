package render

import (
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-orderwizard/pkg/model"
)

// ErrorMapping splits a go-errors validation payload into messages keyed by
// prompt field id and step-level messages that match no prompt.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// Lines flattens the mapping into "Label: message" lines ordered like fields,
// followed by step-level messages.
func (m ErrorMapping) Lines(fields []model.Field) []string {
	var out []string
	for _, field := range fields {
		for _, msg := range m.Fields[field.ID] {
			out = append(out, field.Label+": "+msg)
		}
	}
	return append(out, m.Form...)
}

// MapError extracts the field errors carried by err and maps them onto the
// prompts of the open step. Errors without field details become step-level
// messages.
func MapError(fields []model.Field, err error) ErrorMapping {
	if err == nil {
		return ErrorMapping{}
	}
	payload := make(map[string][]string)
	if fieldErrs, ok := goerrors.GetValidationErrors(err); ok && len(fieldErrs) > 0 {
		for _, fe := range fieldErrs {
			payload[fe.Field] = append(payload[fe.Field], fe.Message)
		}
	} else {
		var ge *goerrors.Error
		if goerrors.As(err, &ge) {
			payload[""] = []string{ge.Message}
		} else {
			payload[""] = []string{err.Error()}
		}
	}
	return MapErrorPayload(fields, payload)
}

// MapErrorPayload normalises error payloads keyed by field paths (plain ids,
// camelCase names or JSON pointers such as "/body/imageUrl") into prompt ids.
// Unknown paths are kept as step-level messages so nothing is lost.
func MapErrorPayload(fields []model.Field, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{
		Fields: make(map[string][]string),
	}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	known := make(map[string]string, len(fields))
	for _, field := range fields {
		if id := strings.TrimSpace(field.ID); id != "" {
			known[matchKey(id)] = id
		}
	}

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}

		id, formLevel := mapErrorPath(rawPath, known)
		if formLevel {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[id] = append(mapping.Fields[id], normalized...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(raw string, known map[string]string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}

	for _, segment := range stripNumericSegments(dropWrapperSegments(parsePathSegments(trimmed))) {
		if id, ok := known[matchKey(segment)]; ok {
			return id, false
		}
	}
	return "", true
}

// matchKey folds case and separators so "imageUrl", "image_url" and
// "IMAGE-URL" compare equal.
func matchKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.TrimPrefix(clean, "$.")
	clean = strings.TrimLeft(clean, "#/.$")

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"body":    {},
		"request": {},
		"payload": {},
		"data":    {},
		"values":  {},
	}

	out := segments
	for len(out) > 0 {
		if _, ok := wrappers[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "step", "__all__", "non_field_errors":
		return true
	default:
		return false
	}
}
