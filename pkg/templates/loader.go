package templates

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/steps"
)

// LoadOption customises LoadFS.
type LoadOption func(*loadConfig)

type loadConfig struct {
	logger *zap.Logger
}

// WithLogger routes catalog warnings to logger. Warnings are dropped otherwise.
func WithLogger(logger *zap.Logger) LoadOption {
	return func(cfg *loadConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// LoadFS parses every JSON/YAML catalog file in catalog and registers the
// templates against documents. Each document reference must resolve in
// documents and each template must pass the step-packing consistency check.
func LoadFS(catalog, documents fs.FS, opts ...LoadOption) (*Registry, error) {
	cfg := loadConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	registry := NewRegistry(documents)
	if catalog == nil {
		return registry, nil
	}

	err := fs.WalkDir(catalog, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isCatalogFile(path) {
			return nil
		}

		data, err := fs.ReadFile(catalog, path)
		if err != nil {
			return fmt.Errorf("templates: read %s: %w", path, err)
		}

		doc, err := parseCatalog(data, path)
		if err != nil {
			return err
		}

		for _, raw := range doc.Templates {
			desc, err := normaliseTemplate(raw, path)
			if err != nil {
				return err
			}
			if err := checkConsistency(desc, path, cfg.logger); err != nil {
				return err
			}
			if documents != nil {
				if _, err := fs.Stat(documents, desc.DocumentRef); err != nil {
					return fmt.Errorf("templates: template %q (file %s) references missing document %q", desc.ID, path, desc.DocumentRef)
				}
			}
			if err := registry.Register(desc); err != nil {
				return fmt.Errorf("%w (file %s)", err, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return registry, nil
}

// Default loads the bundled catalog and documents.
func Default(opts ...LoadOption) (*Registry, error) {
	return LoadFS(CatalogFS(), DocumentsFS(), opts...)
}

type catalogFile struct {
	Templates []templateFile `json:"templates" yaml:"templates"`
}

type templateFile struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Document    string   `json:"document" yaml:"document"`
	Currency    string   `json:"currency" yaml:"currency"`
	MoneyLayout string   `json:"moneyLayout" yaml:"moneyLayout"`
	Aliases     []string `json:"aliases" yaml:"aliases"`
	Needs       []string `json:"needs" yaml:"needs"`
}

func parseCatalog(data []byte, source string) (catalogFile, error) {
	var doc catalogFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return catalogFile{}, fmt.Errorf("templates: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	return catalogFile{}, fmt.Errorf("templates: parse %s: invalid JSON or YAML", source)
}

func normaliseTemplate(raw templateFile, source string) (model.TemplateDescriptor, error) {
	id := normalizeID(raw.ID)
	if id == "" {
		return model.TemplateDescriptor{}, fmt.Errorf("templates: file %s defines a template without id", source)
	}

	caps, err := model.ParseCapabilities(raw.Needs)
	if err != nil {
		return model.TemplateDescriptor{}, fmt.Errorf("templates: template %q (file %s): %w", id, source, err)
	}

	layout := model.MoneyLayout(strings.ToLower(strings.TrimSpace(raw.MoneyLayout)))
	switch layout {
	case "", model.MoneyTrailing, model.MoneyLeading:
	default:
		return model.TemplateDescriptor{}, fmt.Errorf("templates: template %q (file %s) has unknown money layout %q", id, source, raw.MoneyLayout)
	}

	return model.TemplateDescriptor{
		ID:           id,
		Title:        strings.TrimSpace(raw.Title),
		DocumentRef:  strings.TrimSpace(raw.Document),
		Capabilities: caps,
		Currency:     strings.TrimSpace(raw.Currency),
		MoneyLayout:  layout,
		Aliases:      append([]string(nil), raw.Aliases...),
	}, nil
}

// checkConsistency rejects a third step that would never be needed or would be
// empty. Prompts that can never be reached are tolerated and logged; their
// values fall back to defaults at render time.
func checkConsistency(desc model.TemplateDescriptor, source string, logger *zap.Logger) error {
	caps := desc.Capabilities
	if steps.HasStep3(caps) {
		if !steps.Overflows(caps) {
			return fmt.Errorf("templates: template %q (file %s) declares thirdStep but step 2 does not overflow", desc.ID, source)
		}
		if len(steps.Step3(caps)) == 0 {
			return fmt.Errorf("templates: template %q (file %s) declares thirdStep without third-step prompts", desc.ID, source)
		}
	}

	if missing := steps.Unreachable(caps); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, c := range missing {
			names = append(names, c.String())
		}
		logger.Warn("template prompts exceed step capacity",
			zap.String("template", desc.ID),
			zap.Strings("unreachable", names),
		)
	}
	return nil
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
