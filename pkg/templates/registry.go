package templates

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-orderwizard/pkg/model"
)

// TextCodeUnknownTemplate tags errors for template ids missing from the catalog.
const TextCodeUnknownTemplate = "UNKNOWN_TEMPLATE"

// Registry stores template descriptors by id, resolving aliases, and serves
// their document bodies. It is populated at startup and read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]model.TemplateDescriptor
	aliases   map[string]string

	documents fs.FS
	docMu     sync.RWMutex
	docCache  map[string][]byte
}

// NewRegistry creates an empty registry whose documents are read from fsys.
func NewRegistry(documents fs.FS) *Registry {
	return &Registry{
		templates: make(map[string]model.TemplateDescriptor),
		aliases:   make(map[string]string),
		documents: documents,
		docCache:  make(map[string][]byte),
	}
}

// Register adds a descriptor. Duplicate ids or aliases return an error.
func (r *Registry) Register(desc model.TemplateDescriptor) error {
	id := normalizeID(desc.ID)
	if id == "" {
		return fmt.Errorf("templates: template id is required")
	}
	if strings.TrimSpace(desc.DocumentRef) == "" {
		return fmt.Errorf("templates: template %q has no document", id)
	}
	desc.ID = id

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(id) {
		return fmt.Errorf("templates: template %q already registered", id)
	}
	aliases := make([]string, 0, len(desc.Aliases))
	for _, alias := range desc.Aliases {
		a := normalizeID(alias)
		if a == "" || a == id {
			continue
		}
		if r.taken(a) {
			return fmt.Errorf("templates: alias %q of %q already registered", a, id)
		}
		aliases = append(aliases, a)
	}
	desc.Aliases = aliases

	r.templates[id] = desc
	for _, a := range aliases {
		r.aliases[a] = id
	}
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(desc model.TemplateDescriptor) {
	if err := r.Register(desc); err != nil {
		panic(err)
	}
}

func (r *Registry) taken(key string) bool {
	if _, ok := r.templates[key]; ok {
		return true
	}
	_, ok := r.aliases[key]
	return ok
}

// Resolve maps an id or alias to the canonical template id.
func (r *Registry) Resolve(id string) (string, bool) {
	key := normalizeID(id)
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.templates[key]; ok {
		return key, true
	}
	canonical, ok := r.aliases[key]
	return canonical, ok
}

// Describe returns the descriptor for id or an UNKNOWN_TEMPLATE not-found error.
func (r *Registry) Describe(id string) (model.TemplateDescriptor, error) {
	canonical, ok := r.Resolve(id)
	if !ok {
		return model.TemplateDescriptor{}, UnknownTemplate(id)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates[canonical], nil
}

// Has reports whether id or alias is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Resolve(id)
	return ok
}

// List returns all descriptors sorted by id.
func (r *Registry) List() []model.TemplateDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.TemplateDescriptor, 0, len(r.templates))
	for _, desc := range r.templates {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDocument returns the raw body named by ref. Bodies are cached after the
// first read.
func (r *Registry) LoadDocument(ref string) ([]byte, error) {
	name := path.Clean(strings.TrimSpace(ref))
	if name == "" || name == "." {
		return nil, fmt.Errorf("templates: document reference is required")
	}

	r.docMu.RLock()
	body, ok := r.docCache[name]
	r.docMu.RUnlock()
	if ok {
		return body, nil
	}

	if r.documents == nil {
		return nil, fmt.Errorf("templates: no document source configured")
	}
	data, err := fs.ReadFile(r.documents, name)
	if err != nil {
		return nil, fmt.Errorf("templates: read document %s: %w", name, err)
	}

	r.docMu.Lock()
	r.docCache[name] = data
	r.docMu.Unlock()
	return data, nil
}

// UnknownTemplate builds the not-found error returned for a missing template.
func UnknownTemplate(id string) error {
	return goerrors.New(fmt.Sprintf("unknown template %q, restart from template selection", id), goerrors.CategoryNotFound).
		WithTextCode(TextCodeUnknownTemplate).
		WithMetadata(map[string]any{"template": id})
}

// IsUnknownTemplate reports whether err came from a failed Describe.
func IsUnknownTemplate(err error) bool {
	var e *goerrors.Error
	return goerrors.As(err, &e) && e.TextCode == TextCodeUnknownTemplate
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
