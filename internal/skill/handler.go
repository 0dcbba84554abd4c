package skill

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"skillswap/internal/auth"
	"skillswap/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

const (
	minTitleLen       = 3
	maxTitleLen       = 100
	minDescriptionLen = 10
	maxDescriptionLen = 500
)

type Store interface {
	List(ctx context.Context, filter Filter) ([]Skill, error)
	Get(ctx context.Context, id string) (Skill, error)
	Create(ctx context.Context, ownerID string, input Input) (Skill, error)
	Update(ctx context.Context, id string, patch Patch) (Skill, error)
	Delete(ctx context.Context, id string) (Skill, error)
}

type Handler struct {
	store  Store
	logger *observability.Logger
}

func NewHandler(store Store, logger *observability.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	filter, problem := parseFilter(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	skills, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.fail(w, err, "failed to list skills")
		return
	}

	writeJSON(w, http.StatusOK, skills)
}

func (h *Handler) GetSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "skill not found")
			return
		}
		h.fail(w, err, "failed to get skill")
		return
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input Input
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if problem := validateInput(input); problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	s, err := h.store.Create(r.Context(), claims.UserID, input)
	if err != nil {
		h.fail(w, err, "failed to create skill")
		return
	}

	h.logger.Info("skill_created", map[string]any{"skill_id": s.ID, "user_id": claims.UserID})
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) UpdateSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var patch Patch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if problem := validatePatch(&patch); problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	s, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "skill not found")
			return
		}
		h.fail(w, err, "failed to update skill")
		return
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s, err := h.store.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "skill not found")
			return
		}
		h.fail(w, err, "failed to delete skill")
		return
	}

	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) fail(w http.ResponseWriter, err error, message string) {
	sentry.CaptureException(err)
	h.logger.Error(message, map[string]any{"error": err.Error()})
	writeError(w, http.StatusInternalServerError, message)
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid skill id")
		return "", false
	}
	return id, true
}

func parseFilter(r *http.Request) (Filter, string) {
	var filter Filter
	q := r.URL.Query()

	if v := q.Get("category"); v != "" {
		c := Category(v)
		if !c.Valid() {
			return Filter{}, "unknown category"
		}
		filter.Category = &c
	}
	if v := q.Get("level"); v != "" {
		l := Level(v)
		if !l.Valid() {
			return Filter{}, "unknown level"
		}
		filter.Level = &l
	}
	if v := q.Get("can_teach"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Filter{}, "can_teach must be a boolean"
		}
		filter.CanTeach = &b
	}
	if v := q.Get("want_learn"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Filter{}, "want_learn must be a boolean"
		}
		filter.WantLearn = &b
	}

	return filter, ""
}

func validateInput(input Input) string {
	if problem := validateTitle(input.Title); problem != "" {
		return problem
	}
	if problem := validateDescription(input.Description); problem != "" {
		return problem
	}
	if !input.Category.Valid() {
		return "unknown category"
	}
	if !input.Level.Valid() {
		return "unknown level"
	}
	return ""
}

// validatePatch trims provided text fields in place.
func validatePatch(patch *Patch) string {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if problem := validateTitle(title); problem != "" {
			return problem
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if problem := validateDescription(description); problem != "" {
			return problem
		}
		patch.Description = &description
	}
	if patch.Category != nil && !patch.Category.Valid() {
		return "unknown category"
	}
	if patch.Level != nil && !patch.Level.Valid() {
		return "unknown level"
	}
	return ""
}

func validateTitle(title string) string {
	if !utf8.ValidString(title) {
		return "title is invalid"
	}
	if n := utf8.RuneCountInString(title); n < minTitleLen || n > maxTitleLen {
		return "title must be between 3 and 100 characters"
	}
	return ""
}

func validateDescription(description string) string {
	if !utf8.ValidString(description) {
		return "description is invalid"
	}
	if n := utf8.RuneCountInString(description); n < minDescriptionLen || n > maxDescriptionLen {
		return "description must be between 10 and 500 characters"
	}
	return ""
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
