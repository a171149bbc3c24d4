package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dsemenov/sentence-board/internal/models"
	"github.com/dsemenov/sentence-board/internal/store"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// googleProfile is the subset of the userinfo response we consume.
type googleProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// NewGoogleOAuth builds the oauth2 config for the Google code flow.
func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"profile", "email"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleLogin handles GET /auth/google: signs a state token and sends the
// browser to Google's consent page.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := newStateToken(h.secret, time.Now())
	if err != nil {
		h.log.Error("oauth state", zap.Error(err))
		redirectWithError(w, r, "/auth/login", "Google login failed.")
		return
	}
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/redirect: verifies the state,
// exchanges the code, resolves or creates the account, and starts a session.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if err := verifyStateToken(h.secret, r.URL.Query().Get("state")); err != nil {
		redirectWithError(w, r, "/auth/login", "Google login failed.")
		return
	}

	token, err := h.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.log.Warn("oauth exchange", zap.Error(err))
		redirectWithError(w, r, "/auth/login", "Google login failed.")
		return
	}

	profile, err := fetchGoogleProfile(r.Context(), h.oauth, token)
	if err != nil {
		h.log.Warn("google userinfo", zap.Error(err))
		redirectWithError(w, r, "/auth/login", "Google login failed.")
		return
	}

	account, err := h.resolveOrCreateFederated(r.Context(), profile)
	if err != nil {
		h.log.Error("federated account", zap.Error(err))
		redirectWithError(w, r, "/auth/login", "Google login failed.")
		return
	}

	if err := h.startSession(w, r, account.ID); err != nil {
		redirectWithError(w, r, "/auth/login", "An unexpected error occurred.")
		return
	}
	http.Redirect(w, r, "/auth/dashboard", http.StatusSeeOther)
}

func fetchGoogleProfile(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*googleProfile, error) {
	resp, err := cfg.Client(ctx, token).Get(googleUserinfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New("userinfo response missing id")
	}
	return &p, nil
}

// resolveOrCreateFederated returns the account bound to the Google identity,
// creating it on first login. A display name that collides with an existing
// username is retried once with a suffix derived from the provider id, so a
// Google signup never fails on, and never shadows, a local account's name.
func (h *Handler) resolveOrCreateFederated(ctx context.Context, p *googleProfile) (*models.Account, error) {
	account, err := h.users.GetByGoogleID(ctx, p.ID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var email *string
	if p.Email != "" {
		email = &p.Email
	}
	thumbnail := p.Picture
	if thumbnail == "" {
		thumbnail = placeholderThumbnail(p.Name)
	}

	account, err = h.users.CreateFederated(ctx, p.ID, p.Name, email, thumbnail)
	if errors.Is(err, store.ErrUsernameTaken) {
		account, err = h.users.CreateFederated(ctx, p.ID, p.Name+"-"+idSuffix(p.ID), email, thumbnail)
	}
	return account, err
}

func idSuffix(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
