// Package api exposes sentences, practice and scoring over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/japaniel/phrasebook/pkg/apperr"
	"github.com/japaniel/phrasebook/pkg/artifact"
	"github.com/japaniel/phrasebook/pkg/query"
	"github.com/japaniel/phrasebook/pkg/scoring"
	"github.com/japaniel/phrasebook/pkg/sentences"
)

// MaxUploadSize bounds a multipart request carrying an audio file.
const MaxUploadSize = 32 << 20

// Handler holds the collaborators the routes call into.
type Handler struct {
	repo      *sentences.Repository
	artifacts artifact.Store
	scorers   map[string]*scoring.Scorer
	log       *slog.Logger

	// AdminMiddleware guards the /api/admin routes when set. Authentication
	// itself lives outside this package.
	AdminMiddleware mux.MiddlewareFunc
}

// NewHandler wires a handler. The default scorer compares whitespace
// separated words; register others with RegisterScorer.
func NewHandler(repo *sentences.Repository, artifacts artifact.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		repo:      repo,
		artifacts: artifacts,
		scorers:   map[string]*scoring.Scorer{"": scoring.New(nil)},
		log:       logger,
	}
}

// RegisterScorer makes s available for compare requests with the given lang.
func (h *Handler) RegisterScorer(lang string, s *scoring.Scorer) {
	h.scorers[strings.ToLower(lang)] = s
}

// Routes builds the router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/sentences", h.ListSentences).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sentences", h.UploadSentence).Methods(http.MethodPost)
	apiRouter.HandleFunc("/sentences/filter", h.FilterSentences).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sentences/{id:[0-9]+}", h.GetSentence).Methods(http.MethodGet)
	apiRouter.HandleFunc("/sentences/{id:[0-9]+}", h.PatchSentence).Methods(http.MethodPatch)

	apiRouter.HandleFunc("/speaking/random", h.Practice).Methods(http.MethodGet)
	apiRouter.HandleFunc("/speaking/compare", h.Compare).Methods(http.MethodPost)

	admin := apiRouter.PathPrefix("/admin").Subrouter()
	if h.AdminMiddleware != nil {
		admin.Use(h.AdminMiddleware)
	}
	admin.HandleFunc("/sentences", h.FilterSentences).Methods(http.MethodGet)
	admin.HandleFunc("/sentences", h.CreateSentence).Methods(http.MethodPost)
	admin.HandleFunc("/sentences/{id:[0-9]+}", h.PatchSentence).Methods(http.MethodPatch)
	admin.HandleFunc("/sentences/{id:[0-9]+}", h.DeleteSentence).Methods(http.MethodDelete)
	admin.HandleFunc("/upload-audio", h.UploadAudio).Methods(http.MethodPost)
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// ListSentences pages through full sentences, oldest first, one per page by
// default.
func (h *Handler) ListSentences(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	res, err := h.repo.List(r.Context(), page, limit)
	if err != nil {
		respondWithErr(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// FilterSentences lists summaries matching the query string, newest first.
func (h *Handler) FilterSentences(w http.ResponseWriter, r *http.Request) {
	c, err := query.ParseValues(r.URL.Query())
	if err != nil {
		respondWithErr(w, h.log, err)
		return
	}
	res, err := h.repo.Filter(r.Context(), c)
	if err != nil {
		respondWithErr(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// GetSentence returns one sentence including its audio path.
func (h *Handler) GetSentence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.repo.Get(r.Context(), id)
	if err != nil {
		respondWithErr(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"data": s})
}

// UploadSentence accepts a multipart form with an "audio" file and the
// original, translation and explanation fields.
func (h *Handler) UploadSentence(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.saveAudio(w, r)
	if !ok {
		return
	}
	in := sentences.NewSentence{
		Original:    r.FormValue("original"),
		Translation: r.FormValue("translation"),
		AudioPath:   ref,
		Explanation: r.FormValue("explanation"),
	}
	h.create(w, r, in, true)
}

// CreateSentence accepts a JSON sentence whose audio was uploaded beforehand.
func (h *Handler) CreateSentence(w http.ResponseWriter, r *http.Request) {
	var in sentences.NewSentence
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	h.create(w, r, in, false)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, in sentences.NewSentence, uploaded bool) {
	id, err := h.repo.Create(r.Context(), in)
	if err != nil {
		// Duplicates already cleaned up their audio.
		if uploaded && !errors.Is(err, apperr.ErrDuplicate) {
			h.discard(r.Context(), in.AudioPath)
		}
		respondWithErr(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]any{"id": id, "audioPath": in.AudioPath})
}

// UploadAudio stores an audio file and returns its reference.
func (h *Handler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.saveAudio(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"audioPath": ref})
}

func (h *Handler) saveAudio(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return "", false
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondWithErr(w, h.log, apperr.Invalid("audio", "file is required"))
		return "", false
	}
	defer file.Close()

	ref, err := h.artifacts.Save(r.Context(), header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		respondWithErr(w, h.log, fmt.Errorf("save audio: %w", err))
		return "", false
	}
	return ref, true
}

func (h *Handler) discard(ctx context.Context, ref string) {
	if err := h.artifacts.Remove(ctx, ref); err != nil {
		h.log.Warn("removing uploaded audio failed", "audioPath", ref, "err", err)
	}
}

// PatchSentence updates the JSON object's fields on one sentence.
func (h *Handler) PatchSentence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.repo.Patch(r.Context(), id, fields); err != nil {
		respondWithErr(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

// DeleteSentence removes one sentence.
func (h *Handler) DeleteSentence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		respondWithErr(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// Practice pages through practice items, one per page by default.
func (h *Handler) Practice(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	res, err := h.repo.Practice(r.Context(), page, limit)
	if err != nil {
		respondWithErr(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// CompareRequest is the body of a compare call.
type CompareRequest struct {
	OriginalText string `json:"originalText"`
	UserText     string `json:"userText"`
	Lang         string `json:"lang"`
}

// Compare scores a transcribed attempt against its reference text.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	s, ok := h.scorers[strings.ToLower(req.Lang)]
	if !ok {
		respondWithErr(w, h.log, apperr.Invalid("lang", "unsupported language "+strconv.Quote(req.Lang)))
		return
	}
	res, err := s.Score(req.OriginalText, req.UserText)
	if err != nil {
		respondWithErr(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// pageParams reads page and limit; non-numeric values count as absent.
func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return page, limit
}
