package models

import "testing"

func TestNormalizeCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"jokes", "jokes"},
		{"QUOTES", "quotes"},
		{" facts ", "facts"},
		{"", "other"},
		{"poetry", "other"},
		{"all", "other"},
	}
	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
