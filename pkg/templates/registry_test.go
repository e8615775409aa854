package templates_test

import (
	"strings"
	"testing"
	"testing/fstest"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/templates"
)

func TestRegistry_RegisterAndDescribe(t *testing.T) {
	reg := templates.NewRegistry(nil)
	reg.MustRegister(model.TemplateDescriptor{
		ID:           "LV",
		DocumentRef:  "lv.html",
		Capabilities: model.NewCapabilities(model.CapReference),
		Aliases:      []string{"louis_vuitton"},
	})

	desc, err := reg.Describe("louis_vuitton")
	if err != nil {
		t.Fatalf("describe alias: %v", err)
	}
	if desc.ID != "lv" {
		t.Fatalf("expected canonical id lv, got %q", desc.ID)
	}
	if !desc.Needs(model.CapReference) {
		t.Fatalf("expected reference capability")
	}
	if !reg.Has(" LV ") {
		t.Fatalf("expected lookups to ignore case and spaces")
	}
}

func TestRegistry_DuplicateIDsAndAliases(t *testing.T) {
	reg := templates.NewRegistry(nil)
	reg.MustRegister(model.TemplateDescriptor{ID: "nike", DocumentRef: "nike.html", Aliases: []string{"swoosh"}})

	if err := reg.Register(model.TemplateDescriptor{ID: "nike", DocumentRef: "x.html"}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if err := reg.Register(model.TemplateDescriptor{ID: "other", DocumentRef: "x.html", Aliases: []string{"swoosh"}}); err == nil {
		t.Fatalf("expected duplicate alias error")
	}
	if err := reg.Register(model.TemplateDescriptor{ID: "swoosh", DocumentRef: "x.html"}); err == nil {
		t.Fatalf("expected id colliding with alias to fail")
	}
	if err := reg.Register(model.TemplateDescriptor{ID: "nodoc"}); err == nil {
		t.Fatalf("expected missing document error")
	}
}

func TestRegistry_UnknownTemplate(t *testing.T) {
	reg := templates.NewRegistry(nil)
	_, err := reg.Describe("ghost")
	if err == nil {
		t.Fatalf("expected error for unknown template")
	}
	if !templates.IsUnknownTemplate(err) {
		t.Fatalf("expected UNKNOWN_TEMPLATE, got %v", err)
	}
	if !goerrors.IsNotFound(err) {
		t.Fatalf("expected not-found category, got %v", err)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := templates.NewRegistry(nil)
	for _, id := range []string{"zalando", "apple", "nike"} {
		reg.MustRegister(model.TemplateDescriptor{ID: id, DocumentRef: id + ".html"})
	}
	var ids []string
	for _, desc := range reg.List() {
		ids = append(ids, desc.ID)
	}
	if got := strings.Join(ids, ","); got != "apple,nike,zalando" {
		t.Fatalf("unexpected order: %s", got)
	}
}

func TestRegistry_LoadDocumentCaches(t *testing.T) {
	docs := fstest.MapFS{"a.html": {Data: []byte("<p>PRICE</p>")}}
	reg := templates.NewRegistry(docs)

	body, err := reg.LoadDocument("a.html")
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	if string(body) != "<p>PRICE</p>" {
		t.Fatalf("unexpected body %q", body)
	}

	delete(docs, "a.html")
	if _, err := reg.LoadDocument("a.html"); err != nil {
		t.Fatalf("expected cached document, got %v", err)
	}
	if _, err := reg.LoadDocument("missing.html"); err == nil {
		t.Fatalf("expected missing document error")
	}
}
