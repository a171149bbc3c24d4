package auth

import (
	"context"

	"github.com/dsemenov/sentence-board/internal/models"
)

type ctxKey int

const accountKey ctxKey = iota

// WithAccount returns a context carrying the resolved account. The auth
// middleware calls this once per request.
func WithAccount(ctx context.Context, account *models.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// CurrentAccount returns the account resolved for this request, or nil if
// the request never passed an auth gate.
func CurrentAccount(ctx context.Context) *models.Account {
	account, _ := ctx.Value(accountKey).(*models.Account)
	return account
}
