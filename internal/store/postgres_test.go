package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "username index",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"},
			want: ErrUsernameTaken,
		},
		{
			name: "email index",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			want: ErrEmailTaken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapUniqueViolation(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("mapUniqueViolation = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapUniqueViolation_Passthrough(t *testing.T) {
	t.Parallel()

	// A violation on an unrelated constraint is not a conflict we report.
	other := &pgconn.PgError{Code: "23505", ConstraintName: "users_google_id_key"}
	if got := mapUniqueViolation(other); errors.Is(got, ErrUsernameTaken) || errors.Is(got, ErrEmailTaken) {
		t.Fatalf("unexpected conflict mapping: %v", got)
	}

	plain := errors.New("connection reset")
	got := mapUniqueViolation(plain)
	if !errors.Is(got, plain) {
		t.Fatalf("expected wrapped original error, got %v", got)
	}
}
