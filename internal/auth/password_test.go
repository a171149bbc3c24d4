package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "pw123" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword(hash, "pw123") {
		t.Fatal("expected matching password to verify")
	}
}

func TestCheckPassword_Mismatch(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if CheckPassword(hash, "pw124") {
		t.Fatal("wrong password verified")
	}
	if CheckPassword("not-a-bcrypt-hash", "pw123") {
		t.Fatal("garbage hash verified")
	}
}
