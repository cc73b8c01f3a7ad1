package protocol

import "testing"

func TestCheckPasswordRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	digest := PasswordHash("hunter2", "alice", salt)
	if !CheckPassword(digest, "hunter2", "alice", salt) {
		t.Fatal("expected matching password to check out")
	}
	if CheckPassword(digest, "wrong", "alice", salt) {
		t.Fatal("expected mismatched password to fail")
	}
}
