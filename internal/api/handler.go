package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/w-h-a/doclens"
	"github.com/w-h-a/doclens/history"
	"github.com/w-h-a/doclens/internal/service"
)

// multipart framing allowance on top of the file ceiling
const formOverhead = 1 << 20

type Handler struct {
	options Options
	lens    *doclens.Lens
	limiter *Limiter
}

type uploadResponse struct {
	SessionID string `json:"session_id"`
	Class     string `json:"caller_class"`
	Remaining int    `json:"remaining_quota"`
	Unlimited bool   `json:"unlimited"`
	Passages  int    `json:"passage_count"`
	Pages     int    `json:"pages"`
	Method    string `json:"processing_method"`
}

type queryRequest struct {
	Question string `json:"question"`
}

type source struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type queryResponse struct {
	Answer         string   `json:"answer"`
	ResponseTimeMs int64    `json:"response_time_ms"`
	Sources        []source `json:"sources"`
}

type documentResponse struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	PassageCount int       `json:"passage_count"`
	TextLength   int       `json:"text_length"`
	Viewable     bool      `json:"viewable"`
	Class        string    `json:"caller_class"`
	CreatedAt    time.Time `json:"created_at"`
}

type viewResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

type meResponse struct {
	Class     string `json:"caller_class"`
	AccountID string `json:"account_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Quota     int    `json:"quota"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining_quota"`
	Unlimited bool   `json:"unlimited"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Sessions  int       `json:"sessions"`
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/upload", h.upload).Methods(http.MethodPost)
	r.HandleFunc("/query/{id}", h.query).Methods(http.MethodPost)
	r.HandleFunc("/document/{id}", h.document).Methods(http.MethodGet)
	r.HandleFunc("/document/{id}/view", h.view).Methods(http.MethodGet)
	r.HandleFunc("/history", h.documents).Methods(http.MethodGet)
	r.HandleFunc("/history/{id}/queries", h.queries).Methods(http.MethodGet)
	r.HandleFunc("/me", h.me).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	if h.options.Metrics != nil {
		r.Handle("/metrics", h.options.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}

// Middleware returns the request chain, outermost first.
func (h *Handler) Middleware() []func(http.Handler) http.Handler {
	ms := []func(http.Handler) http.Handler{
		Recover(h.options.Logger),
		Log(h.options.Logger),
		Authenticate(h.options.Verifier, h.options.TrustProxy, h.options.Logger),
	}
	if h.limiter != nil {
		ms = append(ms, h.limiter.Middleware)
	}
	return ms
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.options.MaxUploadBytes+formOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, h.options.Logger, service.NewError(service.ErrPayloadTooLarge, "upload is too large", err))
			return
		}
		writeError(w, r, h.options.Logger, service.NewError(service.ErrInvalidInput, "multipart field \"file\" is required", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.options.MaxUploadBytes+1))
	if err != nil {
		writeError(w, r, h.options.Logger, service.NewError(service.ErrInvalidInput, "could not read upload", err))
		return
	}

	res, err := h.lens.Upload(r.Context(), CallerFrom(r.Context()), header.Filename, data)
	if err != nil {
		writeError(w, r, h.options.Logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		SessionID: res.SessionID,
		Class:     string(res.Class),
		Remaining: res.Remaining,
		Unlimited: res.Unlimited,
		Passages:  res.Passages,
		Pages:     res.Pages,
		Method:    res.Method,
	})
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, r, h.options.Logger, service.NewError(service.ErrInvalidInput, "body must be JSON with a question", err))
		return
	}

	ans, err := h.lens.Ask(r.Context(), CallerFrom(r.Context()), mux.Vars(r)["id"], req.Question)
	if err != nil {
		writeError(w, r, h.options.Logger, err)
		return
	}

	sources := make([]source, len(ans.Passages))
	for i, hit := range ans.Passages {
		sources[i] = source{Index: hit.Passage.Index, Score: hit.Score}
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:         ans.Text,
		ResponseTimeMs: ans.Latency.Milliseconds(),
		Sources:        sources,
	})
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	sess, err := h.lens.Document(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.options.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, documentResponse{
		ID:           sess.ID,
		DisplayName:  sess.Name,
		PassageCount: len(sess.Passages),
		TextLength:   len([]rune(sess.Text)),
		Viewable:     doclens.CanView(CallerFrom(r.Context()), sess),
		Class:        string(sess.Class),
		CreatedAt:    sess.CreatedAt,
	})
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	sess, err := h.lens.View(r.Context(), CallerFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.options.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, viewResponse{
		ID:          sess.ID,
		DisplayName: sess.Name,
		Text:        sess.Text,
	})
}

func (h *Handler) documents(w http.ResponseWriter, r *http.Request) {
	docs, err := h.lens.Documents(r.Context(), CallerFrom(r.Context()), limit(r))
	if err != nil {
		writeError(w, r, h.options.Logger, err)
		return
	}

	if docs == nil {
		docs = []history.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) queries(w http.ResponseWriter, r *http.Request) {
	qs, err := h.lens.Queries(r.Context(), CallerFrom(r.Context()), mux.Vars(r)["id"], r.URL.Query().Get("similar"), limit(r))
	if err != nil {
		writeError(w, r, h.options.Logger, err)
		return
	}

	if qs == nil {
		qs = []history.Query{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"queries": qs})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())

	d, err := h.lens.Usage(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.options.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Class:     string(caller.Class()),
		AccountID: caller.AccountID,
		Email:     caller.Email,
		Quota:     d.Quota,
		Used:      d.Used,
		Remaining: d.Remaining,
		Unlimited: d.Unlimited,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Sessions:  h.lens.Sessions(),
	})
}

func limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return 0
	}
	return min(n, 100)
}

func New(lens *doclens.Lens, opts ...Option) *Handler {
	options := NewOptions(opts...)

	h := &Handler{
		options: options,
		lens:    lens,
	}

	if options.RateLimit > 0 {
		h.limiter = NewLimiter(options.RateLimit, options.Burst)
	}

	return h
}
