package render

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
)

var valueEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeValue escapes the characters that are unsafe inside HTML text and
// attribute values.
func EscapeValue(s string) string {
	return valueEscaper.Replace(s)
}

// DocumentSource supplies raw document bodies by reference.
type DocumentSource interface {
	LoadDocument(ref string) ([]byte, error)
}

// Engine substitutes the token vocabulary into documents. At every position
// the longest token that matches wins, so composite tokens are never split by
// the shorter tokens they contain. Substituted values are escaped and never
// rescanned. An Engine is safe for concurrent use.
type Engine struct {
	byFirst map[byte][]token
	names   []string
}

// NewEngine builds an engine over the full token vocabulary.
func NewEngine() *Engine {
	e := &Engine{byFirst: make(map[byte][]token)}
	for _, t := range vocabulary() {
		e.byFirst[t.name[0]] = append(e.byFirst[t.name[0]], t)
		e.names = append(e.names, t.name)
	}
	for first := range e.byFirst {
		group := e.byFirst[first]
		sort.SliceStable(group, func(i, j int) bool { return len(group[i].name) > len(group[j].name) })
	}
	sort.Strings(e.names)
	return e
}

// Tokens lists the recognised token names.
func (e *Engine) Tokens() []string {
	return append([]string(nil), e.names...)
}

// Render substitutes rc into body.
func (e *Engine) Render(ctx context.Context, rc Context, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(len(body) + len(body)/4)

	for i := 0; i < len(body); {
		if t, ok := e.match(body, i); ok {
			out.WriteString(EscapeValue(t.value(rc)))
			i += len(t.name)
			continue
		}
		out.WriteByte(body[i])
		i++
	}
	return out.Bytes(), nil
}

// RenderDocument loads the template document for rc from docs and renders it.
func (e *Engine) RenderDocument(ctx context.Context, docs DocumentSource, rc Context) ([]byte, error) {
	body, err := docs.LoadDocument(rc.Template.DocumentRef)
	if err != nil {
		return nil, fmt.Errorf("render: template %q: %w", rc.Template.ID, err)
	}
	return e.Render(ctx, rc, body)
}

func (e *Engine) match(body []byte, at int) (token, bool) {
	for _, t := range e.byFirst[body[at]] {
		end := at + len(t.name)
		if end > len(body) || string(body[at:end]) != t.name {
			continue
		}
		if t.bounded && (isWordByte(body, at-1) || isWordByte(body, end)) {
			continue
		}
		return t, true
	}
	return token{}, false
}

func isWordByte(body []byte, at int) bool {
	if at < 0 || at >= len(body) {
		return false
	}
	b := body[at]
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
