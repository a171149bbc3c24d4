package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dsemenov/sentence-board/internal/models"
	"github.com/dsemenov/sentence-board/internal/store"
)

// AccountStore defines the persistence needed by the auth handlers.
type AccountStore interface {
	CreateLocal(ctx context.Context, username, email, hashedPassword, thumbnail string) (*models.Account, error)
	CreateFederated(ctx context.Context, googleID, username string, email *string, thumbnail string) (*models.Account, error)
	GetByLogin(ctx context.Context, login string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.Account, error)
	UpdateThumbnail(ctx context.Context, id, url string) error
}

// Sessions defines the session operations the handlers use.
type Sessions interface {
	Create(ctx context.Context, accountID string) (string, error)
	Get(ctx context.Context, sid string) (string, error)
	Delete(ctx context.Context, sid string) error
}

// AvatarStore defines blob storage for uploaded avatars.
type AvatarStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

const maxAvatarSize = 5 << 20

// Handler holds the auth and profile HTTP handlers.
type Handler struct {
	users    AccountStore
	sessions Sessions
	avatars  AvatarStore
	oauth    *oauth2.Config
	secret   []byte
	log      *zap.Logger
}

func NewHandler(users AccountStore, sessions Sessions, avatars AvatarStore, oauth *oauth2.Config, secret []byte, log *zap.Logger) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		avatars:  avatars,
		oauth:    oauth,
		secret:   secret,
		log:      log,
	}
}

// redirectWithError sends the browser back to path with a human-readable
// message in the query string, the way the login/register pages expect.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

// placeholderThumbnail builds the generated-avatar URL used until a real
// avatar exists.
func placeholderThumbnail(username string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(username) +
		"&background=38bdf8&color=0f172a&bold=true"
}

// pageInfo echoes the flash-style query messages so the page endpoints stay
// inspectable without server-side rendering.
func pageInfo(w http.ResponseWriter, r *http.Request, page string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"page":    page,
		"error":   r.URL.Query().Get("error"),
		"success": r.URL.Query().Get("success"),
	})
}

// RegisterPage handles GET /auth/register.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	pageInfo(w, r, "register")
}

// Register handles POST /auth/register: creates a local account and sends
// the browser to the login page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/auth/register", "Invalid form submission.")
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	if username == "" || email == "" || password == "" {
		redirectWithError(w, r, "/auth/register", "All fields are required.")
		return
	}

	hashed, err := HashPassword(password)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		redirectWithError(w, r, "/auth/register", "An unexpected error occurred during registration.")
		return
	}

	_, err = h.users.CreateLocal(r.Context(), username, email, hashed, placeholderThumbnail(username))
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		redirectWithError(w, r, "/auth/register", "The username \""+username+"\" is already taken.")
		return
	case errors.Is(err, store.ErrEmailTaken):
		redirectWithError(w, r, "/auth/register", "The email address \""+email+"\" is already registered.")
		return
	case err != nil:
		h.log.Error("create account", zap.Error(err))
		redirectWithError(w, r, "/auth/register", "An unexpected error occurred during registration.")
		return
	}

	http.Redirect(w, r, "/auth/login?success="+url.QueryEscape("Registration successful! You can now log in."),
		http.StatusSeeOther)
}

// LoginPage handles GET /auth/login.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	pageInfo(w, r, "login")
}

// Login handles POST /auth/login. The username field accepts either the
// username (case-insensitive) or the email address. Unknown accounts and
// wrong passwords share one message so logins can't enumerate users.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/auth/login", "Invalid form submission.")
		return
	}
	login := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	account, err := h.users.GetByLogin(r.Context(), login)
	if errors.Is(err, store.ErrNotFound) {
		redirectWithError(w, r, "/auth/login", "Incorrect username or password.")
		return
	}
	if err != nil {
		h.log.Error("login lookup", zap.Error(err))
		redirectWithError(w, r, "/auth/login", "An unexpected error occurred.")
		return
	}

	if !account.IsLocal() {
		redirectWithError(w, r, "/auth/login",
			"This account was created via Google and cannot be logged into with a password.")
		return
	}
	if !CheckPassword(account.Password, password) {
		redirectWithError(w, r, "/auth/login", "Incorrect username or password.")
		return
	}

	if err := h.startSession(w, r, account.ID); err != nil {
		redirectWithError(w, r, "/auth/login", "An unexpected error occurred.")
		return
	}
	http.Redirect(w, r, "/auth/dashboard", http.StatusSeeOther)
}

// startSession creates a session for the account and attaches its cookie.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, accountID string) error {
	sid, err := h.sessions.Create(r.Context(), accountID)
	if err != nil {
		h.log.Error("create session", zap.Error(err))
		return err
	}
	http.SetCookie(w, NewSessionCookie(sid))
	return nil
}

// Logout handles GET /auth/logout. Destroying an already-dead session is
// fine; the redirect is the same either way.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.log.Warn("delete session", zap.Error(err))
		}
	}
	http.SetCookie(w, ExpiredSessionCookie())
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// Dashboard handles GET /auth/dashboard and returns the resolved account.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	account := CurrentAccount(r.Context())
	if account == nil {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

func avatarKey(accountID string) string {
	return "avatars/" + accountID
}

// UploadAvatar handles PUT /auth/avatar: stores the uploaded image in the
// blob store and points the account thumbnail at it.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	account := CurrentAccount(r.Context())
	if account == nil {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		http.Error(w, `{"error":"invalid upload"}`, http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		http.Error(w, `{"error":"avatar file is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.avatars.Upload(r.Context(), avatarKey(account.ID), file, header.Size, contentType); err != nil {
		h.log.Error("avatar upload", zap.Error(err))
		http.Error(w, `{"error":"failed to store avatar"}`, http.StatusInternalServerError)
		return
	}

	thumbnail := "/auth/avatar/" + account.ID
	if err := h.users.UpdateThumbnail(r.Context(), account.ID, thumbnail); err != nil {
		h.log.Error("thumbnail update", zap.Error(err))
		http.Error(w, `{"error":"failed to update profile"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"thumbnail": thumbnail})
}

// Avatar handles GET /auth/avatar/{id} and streams the stored image.
func (h *Handler) Avatar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	obj, contentType, err := h.avatars.Download(r.Context(), avatarKey(id))
	if err != nil {
		http.Error(w, `{"error":"avatar not found"}`, http.StatusNotFound)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, obj); err != nil {
		h.log.Warn("avatar stream", zap.Error(err))
	}
}
