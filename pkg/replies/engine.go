package replies

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"
	gotemplate "github.com/goliatone/go-template"
)

// Option configures an Engine before construction.
type Option func(*config)

type config struct {
	baseDir    string
	templates  fs.FS
	extension  string
	funcs      map[string]any
	globalData map[string]any
	extra      []gotemplate.Option
}

// WithBaseDir loads templates from a directory on disk. Templates found there
// take precedence over the embedded set, so operators can restyle replies.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from files.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithExtension overrides the ".tpl" template extension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		cfg.extension = trimmed
	}
}

// WithFilter registers an extra pongo2 filter when the engine loads.
func WithFilter(name string, fn pongo2.FilterFunction) Option {
	return func(cfg *config) {
		name = strings.TrimSpace(name)
		if name == "" || fn == nil {
			return
		}
		cfg.funcs[name] = fn
	}
}

// WithGlobalData seeds values visible to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithGoTemplateOptions passes options straight to the go-template renderer,
// after the ones derived from this package's options.
func WithGoTemplateOptions(opts ...gotemplate.Option) Option {
	return func(cfg *config) {
		cfg.extra = append(cfg.extra, opts...)
	}
}

// Engine renders reply templates through a go-template renderer. Integers in
// the data are handed to templates as text, and output is tidied so chat
// messages carry no trailing spaces or runs of blank lines.
type Engine struct {
	renderer *gotemplate.Engine
}

// NewEngine builds an engine from options. At least one template source is
// required.
func NewEngine(options ...Option) (*Engine, error) {
	cfg := &config{
		extension:  ".tpl",
		funcs:      map[string]any{"plural": filterPlural},
		globalData: map[string]any{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.baseDir == "" && cfg.templates == nil {
		return nil, errors.New("replies: need either a base dir or an fs.FS")
	}

	opts := []gotemplate.Option{
		gotemplate.WithExtension(cfg.extension),
		gotemplate.WithTemplateFunc(cfg.funcs),
	}
	if cfg.baseDir != "" {
		opts = append(opts, gotemplate.WithBaseDir(cfg.baseDir))
	}
	if cfg.templates != nil {
		opts = append(opts, gotemplate.WithFS(cfg.templates))
	}
	if len(cfg.globalData) > 0 {
		globals, err := textContext(cfg.globalData)
		if err != nil {
			return nil, fmt.Errorf("replies: apply global data: %w", err)
		}
		opts = append(opts, gotemplate.WithGlobalData(globals))
	}
	opts = append(opts, cfg.extra...)

	renderer, err := gotemplate.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("replies: new renderer: %w", err)
	}
	renderer.RegisterPreHook(func(hc *gotemplate.HookContext) error {
		data, err := textContext(hc.Data)
		if err != nil {
			return fmt.Errorf("replies: convert data: %w", err)
		}
		hc.Data = data
		return nil
	})
	renderer.RegisterPostHook(func(hc *gotemplate.HookContext) (string, error) {
		return tidy(hc.Output), nil
	})
	return &Engine{renderer: renderer}, nil
}

// Render executes the named template with data. The result is also written to
// every out writer.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.renderer == nil {
		return "", errors.New("replies: engine is nil")
	}
	rendered, err := e.renderer.RenderTemplate(name, data, out...)
	if err != nil {
		return "", fmt.Errorf("replies: render %q: %w", name, err)
	}
	return rendered, nil
}

// RenderString parses and executes an inline template.
func (e *Engine) RenderString(content string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.renderer == nil {
		return "", errors.New("replies: engine is nil")
	}
	rendered, err := e.renderer.RenderString(content, data, out...)
	if err != nil {
		return "", fmt.Errorf("replies: render template string: %w", err)
	}
	return rendered, nil
}

// GlobalContext merges data into the values visible to every template.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.renderer == nil {
		return errors.New("replies: engine is nil")
	}
	if data == nil {
		return nil
	}
	globals, err := textContext(data)
	if err != nil {
		return err
	}
	return e.renderer.GlobalContext(globals)
}

var blankLines = regexp.MustCompile(`\n{3,}`)

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

// textContext flattens data into a map whose numbers are strings. go-template
// passes data through JSON, which would otherwise print 3 as "3.000000".
// Structs are addressed by their json names.
func textContext(data any) (map[string]any, error) {
	var in map[string]any
	switch v := data.(type) {
	case nil:
		return map[string]any{}, nil
	case pongo2.Context:
		in = v
	case map[string]any:
		in = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&in); err != nil {
			return nil, err
		}
	}

	out := make(map[string]any, len(in))
	for key, value := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

func convertValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.Number:
		return v.String(), nil
	case map[string]any:
		return textContext(v)
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			converted, err := convertValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Bool, reflect.Func:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return convertValue(out)
}

// filterPlural appends "s" to param unless in is exactly one:
// {{ n }} {{ n|plural:"use" }}.
func filterPlural(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	word := param.String()
	if in.Integer() == 1 {
		return pongo2.AsValue(word), nil
	}
	return pongo2.AsValue(word + "s"), nil
}
