package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/domain"
	"github.com/kailas-cloud/geogrub/internal/domain/filter"
	logpkg "github.com/kailas-cloud/geogrub/internal/logger"
	"github.com/kailas-cloud/geogrub/internal/metrics"
	healthuc "github.com/kailas-cloud/geogrub/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/geogrub/internal/usecase/session"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest          = "bad_request"
	CodeUnauthorized        = "unauthorized"
	CodeLocationNotFound    = "location_not_found"
	CodeGeocoderUnavailable = "geocoder_unavailable"
	CodeProviderError       = "provider_error"
	CodeProviderUnavailable = "provider_unavailable"
	CodeNotCached           = "not_cached"
	CodeNotFound            = "not_found"
	CodeSummaryDisabled     = "summary_disabled"
	CodePersistFailed       = "persist_failed"
	CodeInternalError       = "internal_error"
)

const maxRequestBody = 1 << 20

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the geogrub HTTP API.
type Server struct {
	sessions      Sessions
	results       ResultReader
	locator       Locator
	details       Details
	photos        Photos
	favorites     Favorites
	health        HealthChecker
	photoWidth    int
	logger        *zap.Logger
	errorHandlers []errorHandler

	mu        sync.Mutex
	delivered *sessionResponse
}

// sessionResponse is the last outcome delivered by a background search.
type sessionResponse struct {
	Seq    uint64            `json:"seq"`
	Result *sessionuc.Result `json:"result,omitempty"`
	Error  *ErrorResponse    `json:"error,omitempty"`
}

// NewServer creates an HTTP API server. photoWidth is the default max_width
// for photo requests.
func NewServer(
	sessions Sessions,
	results ResultReader,
	locator Locator,
	details Details,
	photos Photos,
	favorites Favorites,
	health HealthChecker,
	photoWidth int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		sessions:   sessions,
		results:    results,
		locator:    locator,
		details:    details,
		photos:     photos,
		favorites:  favorites,
		health:     health,
		photoWidth: photoWidth,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrLocationNotFound, http.StatusNotFound, CodeLocationNotFound),
		sentinelHandler(domain.ErrGeocoderUnavailable, http.StatusServiceUnavailable, CodeGeocoderUnavailable),
		sentinelHandler(domain.ErrNotCached, http.StatusNotFound, CodeNotCached),
		sentinelHandler(domain.ErrProviderStatus, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrProviderTransport, http.StatusBadGateway, CodeProviderUnavailable),
		sentinelHandler(domain.ErrSummaryDisabled, http.StatusNotImplemented, CodeSummaryDisabled),
		sentinelHandler(domain.ErrPersist, http.StatusInternalServerError, CodePersistFailed),
	}
	return s
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Get("/search/results", s.SearchResults)
		r.Get("/search/random", s.RandomPlace)
		r.Post("/session/search", s.StartSearch)
		r.Get("/session", s.LatestSearch)
		r.Get("/locate", s.Locate)
		r.Get("/cuisines", s.Cuisines)
		r.Get("/places/{placeID}", s.GetPlace)
		r.Get("/places/{placeID}/summary", s.GetSummary)
		r.Get("/photos/{ref}", s.GetPhoto)
		r.Get("/favorites", s.ListFavorites)
		r.Post("/favorites", s.AddFavorite)
		r.Delete("/favorites/{placeID}", s.RemoveFavorite)
		r.Post("/favorites/{placeID}/toggle", s.ToggleFavorite)
	})
	return r
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	res, err := s.sessions.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StartSearch handles POST /v1/session/search. The search runs in the
// background and supersedes any search still in flight.
func (s *Server) StartSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	seq := s.sessions.Start(r.Context(), req, s.deliver)
	writeJSON(w, http.StatusAccepted, map[string]uint64{"seq": seq})
}

// LatestSearch handles GET /v1/session.
func (s *Server) LatestSearch(w http.ResponseWriter, _ *http.Request) {
	latest := s.sessions.Latest()

	s.mu.Lock()
	resp := s.delivered
	s.mu.Unlock()

	if resp == nil || resp.Seq != latest {
		writeJSON(w, http.StatusAccepted, map[string]any{"seq": latest, "pending": latest != 0})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deliver(res sessionuc.Result, err error) {
	resp := &sessionResponse{Seq: res.Seq}
	if err != nil {
		status, body := s.classify(err)
		s.logger.Warn("background search failed",
			zap.Uint64("seq", res.Seq), zap.Int("status", status), zap.Error(err))
		resp.Error = &body
	} else {
		resp.Result = &res
	}

	s.mu.Lock()
	s.delivered = resp
	s.mu.Unlock()
}

// SearchResults handles GET /v1/search/results.
func (s *Server) SearchResults(w http.ResponseWriter, r *http.Request) {
	results, criteria, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":    r.URL.Query().Get("query"),
		"cuisine":  criteria.Cuisine,
		"price":    criteria.Price,
		"filtered": !criteria.IsIdentity(),
		"places":   results,
	})
}

// RandomPlace handles GET /v1/search/random.
func (s *Server) RandomPlace(w http.ResponseWriter, r *http.Request) {
	results, _, ok := s.filtered(w, r)
	if !ok {
		return
	}
	p, ok := filter.Pick(results, nil)
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "no places match the current filters")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) filtered(w http.ResponseWriter, r *http.Request) ([]domain.PlaceSummary, filter.Criteria, bool) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query is required")
		return nil, filter.Criteria{}, false
	}

	openNow, err := parseBool(q.Get("open_now"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "open_now must be a boolean")
		return nil, filter.Criteria{}, false
	}
	criteria, err := filter.ParseCriteria(q.Get("cuisine"), q.Get("price"), openNow)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return nil, filter.Criteria{}, false
	}

	radius, err := parseInt(q.Get("radius"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "radius must be an integer")
		return nil, filter.Criteria{}, false
	}
	maxPages, err := parseInt(q.Get("max_pages"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "max_pages must be an integer")
		return nil, filter.Criteria{}, false
	}

	results, err := s.results.Cached(r.Context(), query, domain.SearchOptions{
		RadiusMeters: radius,
		MaxPages:     maxPages,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, filter.Criteria{}, false
	}
	return filter.Apply(results, criteria), criteria, true
}

// Locate handles GET /v1/locate.
func (s *Server) Locate(w http.ResponseWriter, r *http.Request) {
	query, center, err := s.locator.NearMe(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "center": center})
}

// Cuisines handles GET /v1/cuisines.
func (s *Server) Cuisines(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"cuisines": filter.Cuisines})
}

// placeResponse decorates a detail with display fields.
type placeResponse struct {
	domain.PlaceDetail
	Favorited        bool   `json:"favorited"`
	MapsURL          string `json:"maps_url"`
	PriceText        string `json:"price_text"`
	SummaryAvailable bool   `json:"summary_available"`
}

// GetPlace handles GET /v1/places/{placeID}.
func (s *Server) GetPlace(w http.ResponseWriter, r *http.Request) {
	d, err := s.details.Fetch(r.Context(), chi.URLParam(r, "placeID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, placeResponse{
		PlaceDetail: d,
		Favorited:   s.favorites.Contains(d.PlaceID),
		MapsURL:     d.MapsURL(),
		PriceText:   d.PriceText(),

		SummaryAvailable: s.details.SummaryEnabled(),
	})
}

// GetSummary handles GET /v1/places/{placeID}/summary.
func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")
	summary, err := s.details.Summarize(r.Context(), placeID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"place_id": placeID, "summary": summary})
}

// GetPhoto handles GET /v1/photos/{ref}.
func (s *Server) GetPhoto(w http.ResponseWriter, r *http.Request) {
	width := s.photoWidth
	if raw := r.URL.Query().Get("max_width"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "max_width must be a positive integer")
			return
		}
		width = n
	}

	blob, ok := s.photos.Fetch(r.Context(), chi.URLParam(r, "ref"), width)
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "photo unavailable")
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	if pw, ph := blob.Dimensions(); pw > 0 {
		w.Header().Set("X-Image-Width", strconv.Itoa(pw))
		w.Header().Set("X-Image-Height", strconv.Itoa(ph))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

// ListFavorites handles GET /v1/favorites.
func (s *Server) ListFavorites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"favorites": s.favorites.List()})
}

// AddFavorite handles POST /v1/favorites.
func (s *Server) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var d domain.PlaceDetail
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if d.PlaceID == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "place_id is required")
		return
	}

	if err := s.favorites.Add(r.Context(), d); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"place_id": d.PlaceID, "favorited": true})
}

// RemoveFavorite handles DELETE /v1/favorites/{placeID}.
func (s *Server) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.favorites.Remove(r.Context(), chi.URLParam(r, "placeID")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite handles POST /v1/favorites/{placeID}/toggle. Adding needs
// the full detail, so the place is fetched first.
func (s *Server) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")

	var d domain.PlaceDetail
	if s.favorites.Contains(placeID) {
		d.PlaceID = placeID
	} else {
		fetched, err := s.details.Fetch(r.Context(), placeID)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		d = fetched
	}

	added, err := s.favorites.Toggle(r.Context(), d)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"place_id": placeID, "favorited": added})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (sessionuc.Request, bool) {
	var req sessionuc.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query is required")
		return req, false
	}
	return req, true
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrLocationNotFound,
		domain.ErrGeocoderUnavailable,
		domain.ErrNotCached,
		domain.ErrProviderStatus,
		domain.ErrProviderTransport,
		domain.ErrSummaryDisabled,
		domain.ErrPersist,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// classify maps an error to the status and body handleDomainError would write.
func (s *Server) classify(err error) (int, ErrorResponse) {
	rec := &statusRecorder{header: http.Header{}}
	for _, h := range s.errorHandlers {
		if h(rec, err, safeDomainMessage(err)) {
			return rec.status, rec.body
		}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: CodeInternalError, Message: "internal error"}
}

// statusRecorder captures what an errorHandler writes.
type statusRecorder struct {
	header http.Header
	status int
	body   ErrorResponse
}

func (r *statusRecorder) Header() http.Header { return r.header }

func (r *statusRecorder) WriteHeader(status int) { r.status = status }

func (r *statusRecorder) Write(b []byte) (int, error) {
	_ = json.Unmarshal(b, &r.body)
	return len(b), nil
}
