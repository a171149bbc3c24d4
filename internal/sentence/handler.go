package sentence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/dsemenov/sentence-board/internal/auth"
	"github.com/dsemenov/sentence-board/internal/models"
	"github.com/dsemenov/sentence-board/internal/store"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SentenceStore defines the persistence interface for sentences.
type SentenceStore interface {
	Insert(ctx context.Context, sen *models.Sentence) (*models.Sentence, error)
	List(ctx context.Context, q models.ListQuery) ([]models.Sentence, error)
	GetByID(ctx context.Context, id string) (*models.Sentence, error)
	Update(ctx context.Context, id primitive.ObjectID, text, category string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DistinctAuthors(ctx context.Context) ([]string, error)
	ListByAuthor(ctx context.Context, name string) ([]models.Sentence, error)
}

// Handler holds the sentences HTTP handlers.
type Handler struct {
	sentences SentenceStore
	log       *zap.Logger
}

func NewHandler(sentences SentenceStore, log *zap.Logger) *Handler {
	return &Handler{sentences: sentences, log: log}
}

// List handles GET /api/sentences with optional category/user/search
// filters and sortBy.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := models.ListQuery{
		Category: r.URL.Query().Get("category"),
		Author:   r.URL.Query().Get("user"),
		Search:   r.URL.Query().Get("search"),
		SortBy:   r.URL.Query().Get("sortBy"),
	}
	sentences, err := h.sentences.List(r.Context(), q)
	if err != nil {
		h.log.Error("list sentences", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch sentences")
		return
	}
	if sentences == nil {
		sentences = []models.Sentence{}
	}
	writeJSON(w, http.StatusOK, sentences)
}

// validateText trims and bounds the sentence text, returning a client
// message when it is unusable.
func validateText(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "Sentence cannot be empty"
	}
	if len(text) > models.MaxSentenceLen {
		return "", "Sentence is too long"
	}
	return text, ""
}

// Create handles POST /api/sentences. Authorship is bound to the session's
// account; any author field in the body is ignored.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	var req models.SentenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	text, msg := validateText(req.Text)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	sen := &models.Sentence{
		Text:     text,
		AuthorID: account.ID,
		Name:     strings.TrimSpace(account.Username),
		Category: models.NormalizeCategory(req.Category),
	}
	saved, err := h.sentences.Insert(r.Context(), sen)
	if err != nil {
		h.log.Error("insert sentence", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save sentence")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// requireAccount returns the session's account; a 401 has been written
// when ok is false.
func (h *Handler) requireAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	account := auth.CurrentAccount(r.Context())
	if account == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized: You must be logged in to modify data.")
		return nil, false
	}
	return account, true
}

// fetch resolves the {id} URL parameter to a sentence. Existence is checked
// before anything ownership-related, so a non-owner asking for a
// nonexistent id sees 404, not 403.
func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) (*models.Sentence, bool) {
	sen, err := h.sentences.GetByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid sentence ID format")
		return nil, false
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Sentence not found")
		return nil, false
	case err != nil:
		h.log.Error("fetch sentence", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch sentence")
		return nil, false
	}
	return sen, true
}

func (h *Handler) checkOwner(w http.ResponseWriter, account *models.Account, sen *models.Sentence) bool {
	if sen.AuthorID != account.ID {
		writeError(w, http.StatusForbidden, "Forbidden: You can only modify your own sentences.")
		return false
	}
	return true
}

// Update handles PUT /api/sentences/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	var req models.SentenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sen, ok := h.fetch(w, r)
	if !ok {
		return
	}
	text, msg := validateText(req.Text)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !h.checkOwner(w, account, sen) {
		return
	}
	category := sen.Category
	if req.Category != "" {
		category = models.NormalizeCategory(req.Category)
	}

	if err := h.sentences.Update(r.Context(), sen.ID, text, category); err != nil {
		h.log.Error("update sentence", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update sentence")
		return
	}

	sen.Text = text
	sen.Category = category
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Sentence updated successfully",
		"sentence": sen,
	})
}

// Delete handles DELETE /api/sentences/{id}. Deletion is permanent.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAccount(w, r)
	if !ok {
		return
	}
	sen, ok := h.fetch(w, r)
	if !ok {
		return
	}
	if !h.checkOwner(w, account, sen) {
		return
	}

	if err := h.sentences.Delete(r.Context(), sen.ID); err != nil {
		h.log.Error("delete sentence", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete sentence")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sentence deleted successfully"})
}

// Users handles GET /api/sentences/users: the distinct author names,
// alphabetically.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	names, err := h.sentences.DistinctAuthors(r.Context())
	if err != nil {
		h.log.Error("distinct authors", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// UserSentences handles GET /api/sentences/users/{name}. An author with no
// sentences and an unknown author are the same 404.
func (h *Handler) UserSentences(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sentences, err := h.sentences.ListByAuthor(r.Context(), name)
	if err != nil {
		h.log.Error("list by author", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch sentences")
		return
	}
	if len(sentences) == 0 {
		writeError(w, http.StatusNotFound, "User not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, sentences)
}
