package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dsemenov/sentence-board/internal/auth"
	"github.com/dsemenov/sentence-board/internal/models"
)

// SessionResolver resolves an opaque session token to an account id.
type SessionResolver interface {
	Get(ctx context.Context, sid string) (string, error)
}

// AccountLoader loads the account bound to a resolved session.
type AccountLoader interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// resolveAccount turns the request's session cookie into an account, or nil
// when the cookie is missing, the session is expired, or the account is gone.
func resolveAccount(r *http.Request, sessions SessionResolver, accounts AccountLoader) *models.Account {
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return nil
	}
	accountID, err := sessions.Get(r.Context(), cookie.Value)
	if err != nil || accountID == "" {
		return nil
	}
	account, err := accounts.GetByID(r.Context(), accountID)
	if err != nil {
		return nil
	}
	return account
}

// RequireAuth gates API routes: without a valid session the wrapped handler
// is never invoked and the client gets a 401 JSON response. On success the
// resolved account is injected into the request context.
func RequireAuth(sessions SessionResolver, accounts AccountLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := resolveAccount(r, sessions, accounts)
			if account == nil {
				http.Error(w, `{"error":"Unauthorized: You must be logged in to modify data."}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), account)))
		})
	}
}

// RequireAuthRedirect gates browser routes: without a valid session the
// browser is sent back to the login page with a message.
func RequireAuthRedirect(sessions SessionResolver, accounts AccountLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := resolveAccount(r, sessions, accounts)
			if account == nil {
				msg := url.QueryEscape("You must be logged in to view the dashboard.")
				http.Redirect(w, r, "/auth/login?error="+msg, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), account)))
		})
	}
}
