package admin

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	goerrors "github.com/goliatone/go-errors"
)

//go:embed openapi.yaml
var openapiDocument []byte

// Document returns the embedded OpenAPI description of the admin API.
func Document() []byte {
	return append([]byte(nil), openapiDocument...)
}

type requestValidator struct {
	router routers.Router
	opts   *openapi3filter.Options
}

func newRequestValidator(ctx context.Context) (*requestValidator, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(openapiDocument)
	if err != nil {
		return nil, fmt.Errorf("admin: load openapi document: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("admin: build openapi router: %w", err)
	}
	return &requestValidator{
		router: router,
		opts: &openapi3filter.Options{
			MultiError:         true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}, nil
}

// middleware rejects requests that do not match the document. Requests for
// unknown routes pass through so the mux answers them.
func (v *requestValidator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, err := v.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options:    v.opts,
		})
		if err != nil {
			writeError(w, requestInvalid(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestInvalid converts kin-openapi failures into a validation error with
// one field entry per failing parameter or body property.
func requestInvalid(err error) error {
	var fields goerrors.ValidationErrors
	collectFieldErrors(err, &fields)
	if len(fields) == 0 {
		fields = append(fields, goerrors.FieldError{Message: err.Error()})
	}
	return goerrors.NewValidation("request does not match the API description", fields...).
		WithTextCode("INVALID_REQUEST")
}

func collectFieldErrors(err error, out *goerrors.ValidationErrors) {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			collectFieldErrors(e, out)
		}
		return
	}

	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		*out = append(*out, goerrors.FieldError{Message: err.Error()})
		return
	}

	field := "body"
	if reqErr.Parameter != nil {
		field = reqErr.Parameter.Name
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(reqErr.Err, &schemaErr) {
		if ptr := schemaErr.JSONPointer(); len(ptr) > 0 && reqErr.Parameter == nil {
			field = ptr[0]
		}
		*out = append(*out, goerrors.FieldError{Field: field, Message: schemaErr.Reason})
		return
	}
	var nested openapi3.MultiError
	if errors.As(reqErr.Err, &nested) {
		for _, e := range nested {
			var se *openapi3.SchemaError
			if errors.As(e, &se) {
				name := field
				if ptr := se.JSONPointer(); len(ptr) > 0 && reqErr.Parameter == nil {
					name = ptr[0]
				}
				*out = append(*out, goerrors.FieldError{Field: name, Message: se.Reason})
				continue
			}
			*out = append(*out, goerrors.FieldError{Field: field, Message: e.Error()})
		}
		return
	}
	*out = append(*out, goerrors.FieldError{Field: field, Message: reqErr.Error()})
}
