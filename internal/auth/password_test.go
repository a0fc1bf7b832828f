package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	t.Parallel()
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("secret1pw")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "secret1pw" {
		t.Fatal("Hash() returned the plaintext")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash %q is not a bcrypt hash", hash)
	}

	if !hasher.Verify("secret1pw", hash) {
		t.Error("Verify() rejected the correct password")
	}
	if hasher.Verify("wrong1pw", hash) {
		t.Error("Verify() accepted a wrong password")
	}
	if hasher.Verify("secret1pw", "not-a-hash") {
		t.Error("Verify() accepted a malformed hash")
	}
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	t.Parallel()
	hasher := NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.Hash("secret1pw")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := hasher.Hash("secret1pw")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password are identical, salting is broken")
	}
}

func TestNewBcryptHasher_DefaultCost(t *testing.T) {
	t.Parallel()
	hasher := NewBcryptHasher(0)
	if hasher.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want bcrypt default %d", hasher.cost, bcrypt.DefaultCost)
	}
}
