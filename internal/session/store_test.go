package session

import (
	"testing"
)

func TestCreateValidateRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore()
	token, err := store.Create(1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(token) < 36 {
		t.Fatalf("token suspiciously short: %q", token)
	}
	if !store.Validate(1, token) {
		t.Fatal("expected token to validate for its owner")
	}
	if store.Validate(2, token) {
		t.Fatal("token must not validate for a different user")
	}
	if store.Validate(1, "not-a-token") {
		t.Fatal("unknown token must not validate")
	}
}

func TestUserHoldsManyConcurrentTokens(t *testing.T) {
	t.Parallel()

	store := NewStore()
	first, err := store.Create(7)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := store.Create(7)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first == second {
		t.Fatal("two created tokens must differ")
	}
	if !store.Validate(7, first) || !store.Validate(7, second) {
		t.Fatal("both tokens must validate concurrently")
	}
}

func TestDeleteAllRevokesOnlyThatUser(t *testing.T) {
	t.Parallel()

	store := NewStore()
	aliceFirst, _ := store.Create(1)
	aliceSecond, _ := store.Create(1)
	bobToken, _ := store.Create(2)

	store.DeleteAll(1)

	if store.Validate(1, aliceFirst) || store.Validate(1, aliceSecond) {
		t.Fatal("all of the user's tokens must be revoked")
	}
	if !store.Validate(2, bobToken) {
		t.Fatal("another user's token must survive DeleteAll")
	}

	// Revoking a user with no sessions is a no-op, not an error.
	store.DeleteAll(99)
	store.DeleteAll(1)
}
