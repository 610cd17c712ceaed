// Package chi exposes the digest service over HTTP using the chi router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
	"github.com/kailas-cloud/dietwatch/internal/domain/speech"
	"github.com/kailas-cloud/dietwatch/internal/logger"
	digestuc "github.com/kailas-cloud/dietwatch/internal/usecase/digest"
	healthuc "github.com/kailas-cloud/dietwatch/internal/usecase/health"
)

const maxRequestBody = 64 << 10

const quotaMessage = "summarization quota exceeded, wait a moment and retry"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// digestHandler handles an error returned together with a digest. Returns true if handled.
type digestHandler func(w http.ResponseWriter, d *digestuc.Digest, err error) bool

// Server serves the dietwatch HTTP API.
type Server struct {
	roster         RosterSource
	digests        DigestRunner
	health         HealthChecker
	logger         *zap.Logger
	errorHandlers  []errorHandler
	digestHandlers []digestHandler
}

// NewServer creates an HTTP API server.
func NewServer(roster RosterSource, digests DigestRunner, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		roster:  roster,
		digests: digests,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		selectionHandler,
		sentinelHandler(domain.ErrDataSource, http.StatusServiceUnavailable, ErrorCodeDataSourceUnavailable),
		sentinelHandler(domain.ErrSummarizationQuota, http.StatusTooManyRequests, ErrorCodeSummarizationQuota),
		sentinelHandler(domain.ErrSummarization, http.StatusBadGateway, ErrorCodeSummarizationFailed),
	}
	s.digestHandlers = []digestHandler{
		partialDigestHandler(domain.ErrEmptyResult, http.StatusOK, DigestStatusEmpty, ""),
		partialDigestHandler(domain.ErrSummarizationQuota,
			http.StatusTooManyRequests, DigestStatusPartial, ErrorCodeSummarizationQuota),
		partialDigestHandler(domain.ErrSummarization,
			http.StatusBadGateway, DigestStatusPartial, ErrorCodeSummarizationFailed),
	}
	return s
}

// Mount registers the API routes on r.
func (s *Server) Mount(r gochi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r gochi.Router) {
		r.Get("/parties", s.ListParties)
		r.Get("/legislators", s.ListLegislators)
		r.Post("/digests", s.CreateDigest)
	})
}

// ListParties handles GET /api/v1/parties.
func (s *Server) ListParties(w http.ResponseWriter, r *http.Request) {
	ix, err := s.roster.Load(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PartyList{Items: nonNil(ix.PartiesOrderedByPreference())})
}

// ListLegislators handles GET /api/v1/legislators.
func (s *Server) ListLegislators(w http.ResponseWriter, r *http.Request) {
	var party, q string
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "party", query, &party); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameter party")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "q", query, &q); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameter q")
		return
	}
	if legislator.IsUnset(party) {
		party = ""
	}

	ix, err := s.roster.Load(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := ix.FindByPartyAndReading(party, q)
	if items == nil {
		items = []legislator.Legislator{}
	}
	writeJSON(w, http.StatusOK, LegislatorList{Items: items})
}

// CreateDigest handles POST /api/v1/digests.
func (s *Server) CreateDigest(w http.ResponseWriter, r *http.Request) {
	var body DigestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := digestRequestFromBody(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	d, err := s.digests.Run(r.Context(), req)
	if err != nil {
		if d != nil {
			for _, h := range s.digestHandlers {
				if h(w, d, err) {
					return
				}
			}
		}
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, digestToResponse(d, DigestStatusOK))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func digestRequestFromBody(body DigestRequest) (digestuc.Request, error) {
	from, err := parseDate("from", body.From)
	if err != nil {
		return digestuc.Request{}, err
	}
	until, err := parseDate("until", body.Until)
	if err != nil {
		return digestuc.Request{}, err
	}
	return digestuc.Request{
		Legislator: body.Legislator,
		Party:      body.Party,
		Keywords:   body.Keywords,
		From:       from,
		Until:      until,
	}, nil
}

func parseDate(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(speech.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrSummarizationQuota) {
		return quotaMessage
	}
	sentinels := []error{
		domain.ErrSelection,
		domain.ErrDataSource,
		domain.ErrEmptyResult,
		domain.ErrSummarization,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// selectionHandler reports ErrSelection with its reason, which is safe to show.
func selectionHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrSelection) {
		return false
	}
	var se *domain.SelectionError
	if errors.As(err, &se) {
		msg = se.Error()
	}
	writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, msg)
	return true
}

// partialDigestHandler replies with the digest collected so far when err matches sentinel.
func partialDigestHandler(sentinel error, httpStatus int, status string, code ErrorCode) digestHandler {
	return func(w http.ResponseWriter, d *digestuc.Digest, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		resp := digestToResponse(d, status)
		resp.Code = code
		resp.Message = safeDomainMessage(err)
		writeJSON(w, httpStatus, resp)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
