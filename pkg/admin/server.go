package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"

	"github.com/goliatone/go-orderwizard/pkg/access"
	"github.com/goliatone/go-orderwizard/pkg/logging"
)

// HTTPError is an error that carries its response status.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError attaches an HTTP status to an error.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

var errUnauthorized = StatusError{Code: http.StatusUnauthorized, Err: errors.New("missing or invalid bearer token")}

// CodeService is the part of access.CodeStore the API exposes.
type CodeService interface {
	Generate(ctx context.Context, typ access.CodeType, count int) ([]access.Code, error)
	List(ctx context.Context, filter access.CodeFilter) ([]access.Code, error)
	Stats(ctx context.Context) (access.CodeStats, error)
}

// Option configures a Server.
type Option func(*Server)

// WithPassword sets the admin password. An empty password disables login.
func WithPassword(password string) Option {
	return func(s *Server) { s.password = password }
}

// WithTokens replaces the token store.
func WithTokens(tokens *TokenStore) Option {
	return func(s *Server) {
		if tokens != nil {
			s.tokens = tokens
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for grants.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server is the admin JSON API over the access ledger and the redeem codes.
type Server struct {
	gate      access.Gate
	codes     CodeService
	tokens    *TokenStore
	password  string
	logger    *zap.Logger
	now       func() time.Time
	validator *requestValidator
}

// NewServer wires the API. The embedded OpenAPI document is loaded once here.
func NewServer(ctx context.Context, gate access.Gate, codes CodeService, opts ...Option) (*Server, error) {
	if gate == nil || codes == nil {
		return nil, fmt.Errorf("admin: server needs a gate and a code service")
	}
	validator, err := newRequestValidator(ctx)
	if err != nil {
		return nil, err
	}
	s := &Server{
		gate:      gate,
		codes:     codes,
		logger:    zap.NewNop(),
		now:       time.Now,
		validator: validator,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tokens == nil {
		s.tokens = NewTokenStore(DefaultTokenTTL, s.now)
	}
	return s, nil
}

// Tokens exposes the token store so callers can sweep it.
func (s *Server) Tokens() *TokenStore { return s.tokens }

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, StatusError{Code: http.StatusNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, StatusError{Code: http.StatusMethodNotAllowed})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(s.validator.middleware).Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.guard)
			r.Use(s.validator.middleware)
			r.Post("/logout", s.handleLogout)
			r.Get("/stats", s.handleStats)
			r.Post("/generate", s.handleGenerate)
			r.Get("/codes", s.handleCodes)
			r.Post("/grants", s.handleGrant)
			r.Delete("/grants", s.handleRevokeAll)
			r.Get("/grants/{userId}", s.handleStatus)
		})
	})
	return r
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.tokens.Valid(bearerToken(r)) {
			writeError(w, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if s.password == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.password)) != 1 {
		s.logger.Warn("admin login rejected", zap.String("remote", r.RemoteAddr))
		writeError(w, StatusError{Code: http.StatusUnauthorized, Err: errors.New("wrong password")})
		return
	}
	token, expires := s.tokens.Issue()
	s.logger.Info("admin login", zap.String("token", logging.MaskToken(token)), zap.Time("expires_at", expires))
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.tokens.Revoke(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.codes.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type generateRequest struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type codesResponse struct {
	Codes []access.Code `json:"codes"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	typ, err := access.ParseCodeType(req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	codes, err := s.codes.Generate(r.Context(), typ, req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("codes generated", zap.String("type", string(typ)), zap.Int("count", len(codes)))
	writeJSON(w, http.StatusCreated, codesResponse{Codes: codes})
}

func (s *Server) handleCodes(w http.ResponseWriter, r *http.Request) {
	filter, err := access.ParseCodeFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, err)
		return
	}
	codes, err := s.codes.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if codes == nil {
		codes = []access.Code{}
	}
	writeJSON(w, http.StatusOK, codesResponse{Codes: codes})
}

type grantRequest struct {
	UserID string `json:"userId"`
	Days   *int   `json:"days"`
	Uses   *int   `json:"uses"`
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Days == nil && req.Uses == nil {
		writeError(w, goerrors.NewValidation("nothing to grant",
			goerrors.FieldError{Field: "days", Message: "set days, uses or both"}).
			WithTextCode("INVALID_REQUEST"))
		return
	}

	var grant access.Grant
	if req.Days != nil {
		grant = access.GrantDays(s.now(), *req.Days)
	}
	if req.Uses != nil {
		grant.Uses = access.GrantUses(*req.Uses).Uses
	}
	if err := s.gate.Grant(r.Context(), req.UserID, grant); err != nil {
		writeError(w, err)
		return
	}
	status, err := s.gate.Status(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("access granted", zap.String("user_id", req.UserID), zap.Bool("unlimited", status.Unlimited), zap.Int("remaining", status.Remaining))
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.RevokeAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Warn("all access revoked")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.gate.Status(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

// writeError renders err as a go-errors response envelope.
func writeError(w http.ResponseWriter, err error) {
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	code := mapped.Code
	if code <= 0 {
		code = statusFor(mapped.Category)
	}
	writeJSON(w, code, mapped.ToErrorResponse(false, nil))
}

func statusFor(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
