// Package httpapi exposes the worry service REST API. Routes and JSON field
// names follow the public client contract; reaction toggles are GET endpoints
// for compatibility with existing clients.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	app "github.com/greenpen-app/worry-service/internal/app"
	"github.com/greenpen-app/worry-service/internal/app/metrics"
	"github.com/greenpen-app/worry-service/internal/app/services/comments"
	"github.com/greenpen-app/worry-service/internal/app/services/letters"
	"github.com/greenpen-app/worry-service/internal/app/services/points"
	"github.com/greenpen-app/worry-service/internal/app/storage"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API plus health and metrics
// endpoints.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/autoSignup", h.autoSignup)
	mux.HandleFunc("/writing", h.writing)
	mux.HandleFunc("/listening", h.listening)
	mux.HandleFunc("/worry", h.submitComment)
	mux.HandleFunc("/worry/", h.worryResources)
	mux.HandleFunc("/points/", h.points)
	mux.HandleFunc("/levels/", h.levels)
	mux.HandleFunc("/levelUp/", h.levelUp)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *handler) autoSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		AnonID string `json:"anonId"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Identity.EnsureRegistered(r.Context(), payload.AnonID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, map[string]string{"message": "already registered"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "signup ok"})
}

func (h *handler) writing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	// Clients also send writtenDate and attention; the server assigns both.
	var payload struct {
		AnonID      string   `json:"anonId"`
		Letter      string   `json:"letter"`
		WrittenDate string   `json:"writtenDate"`
		Attention   []string `json:"attention"`
		ColorIndex  int      `json:"colorIndex"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Letters.Submit(r.Context(), letters.SubmitRequest{
		AnonID:     payload.AnonID,
		Letter:     payload.Letter,
		ColorIndex: payload.ColorIndex,
	})
	switch {
	case errors.Is(err, letters.ErrEmptyContent):
		// Empty letters are dropped silently, not failed.
		writeJSON(w, http.StatusOK, map[string]string{"message": "empty letter ignored"})
	case errors.Is(err, letters.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err)
	case errors.Is(err, points.ErrInsufficientPoints):
		writeError(w, http.StatusForbidden, err)
	case err != nil:
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
	default:
		writeJSON(w, http.StatusCreated, created)
	}
}

func (h *handler) listening(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list, err := h.app.Letters.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) submitComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	// commentTime, likes and dislikes arrive from clients but are assigned
	// server-side.
	var payload struct {
		WorryID       string   `json:"worryId"`
		AnonID        string   `json:"anonId"`
		CommentWriter string   `json:"commentWriter"`
		CommentTxt    string   `json:"commentTxt"`
		CommentTime   string   `json:"commentTime"`
		Likes         []string `json:"likes"`
		Dislikes      []string `json:"dislikes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Comments.Submit(r.Context(), comments.SubmitRequest{
		WorryID:       payload.WorryID,
		AnonID:        payload.AnonID,
		CommentWriter: payload.CommentWriter,
		CommentTxt:    payload.CommentTxt,
	})
	switch {
	case errors.Is(err, comments.ErrEmptyContent):
		writeJSON(w, http.StatusOK, map[string]string{"message": "empty comment ignored"})
	case err != nil:
		writeError(w, statusFor(err, http.StatusBadRequest), err)
	default:
		writeJSON(w, http.StatusOK, created)
	}
}

// worryResources dispatches the GET routes under /worry/:
//
//	/worry/{worryId}                  list comments
//	/worry/{worryId}/{anonId}         toggle empathy
//	/worry/like/{commentId}/{anonId}  toggle like
//	/worry/dislike/{commentId}/{anonId} toggle dislike
func (h *handler) worryResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/worry"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case parts[0] == "like" && len(parts) == 3:
		h.toggleLike(w, r, parts[1], parts[2])
	case parts[0] == "dislike" && len(parts) == 3:
		h.toggleDislike(w, r, parts[1], parts[2])
	case len(parts) == 1:
		h.listComments(w, r, parts[0])
	case len(parts) == 2:
		h.toggleEmpathy(w, r, parts[0], parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) listComments(w http.ResponseWriter, r *http.Request, worryID string) {
	list, err := h.app.Comments.ListByLetter(r.Context(), worryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) toggleEmpathy(w http.ResponseWriter, r *http.Request, worryID, anonID string) {
	result, err := h.app.Letters.ToggleAttention(r.Context(), worryID, anonID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	message := "empathy removed"
	if result.Added {
		message = "empathy added"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       message,
		"added":         result.Added,
		"attentionList": result.Members,
	})
}

func (h *handler) toggleLike(w http.ResponseWriter, r *http.Request, commentID, anonID string) {
	result, err := h.app.Comments.ToggleLike(r.Context(), commentID, anonID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	message := "like removed"
	if result.Added {
		message = "like added"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"added":   result.Added,
		"likes":   result.Members,
	})
}

func (h *handler) toggleDislike(w http.ResponseWriter, r *http.Request, commentID, anonID string) {
	result, err := h.app.Comments.ToggleDislike(r.Context(), commentID, anonID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	message := "dislike removed"
	if result.Added {
		message = "dislike added"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  message,
		"added":    result.Added,
		"dislikes": result.Members,
	})
}

func (h *handler) points(w http.ResponseWriter, r *http.Request) {
	anonID, ok := pathParam(w, r, "/points/")
	if !ok {
		return
	}
	balance, err := h.app.Points.Balance(r.Context(), anonID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"point": balance})
}

func (h *handler) levels(w http.ResponseWriter, r *http.Request) {
	anonID, ok := pathParam(w, r, "/levels/")
	if !ok {
		return
	}
	level, err := h.app.Points.Level(r.Context(), anonID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"level": level})
}

func (h *handler) levelUp(w http.ResponseWriter, r *http.Request) {
	anonID, ok := pathParam(w, r, "/levelUp/")
	if !ok {
		return
	}
	u, err := h.app.Points.LevelUp(r.Context(), anonID)
	switch {
	case errors.Is(err, points.ErrMaxLevel):
		// Terminal state, reported as success to the caller.
		writeJSON(w, http.StatusOK, map[string]string{"message": "already at maximum level"})
	case errors.Is(err, points.ErrInsufficientPoints):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "level up",
			"level":   u.Level,
			"point":   u.Point,
		})
	}
}

// pathParam extracts the single trailing path segment for GET routes of the
// form /points/{anonId}.
func pathParam(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return "", false
	}
	param := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if param == "" || strings.Contains(param, "/") {
		w.WriteHeader(http.StatusNotFound)
		return "", false
	}
	return param, true
}

func statusFor(err error, fallback int) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return fallback
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
