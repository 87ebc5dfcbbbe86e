package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

var dummyHashes sync.Map

// DummyHash returns a throwaway hash at cost, generated once per cost. Costs
// below bcrypt.MinCost resolve to bcrypt.DefaultCost, as in HashPassword.
func DummyHash(cost int) []byte {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cached, ok := dummyHashes.Load(cost); ok {
		return cached.([]byte)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte("helpdesk-dummy-secret"), cost)
	if err != nil {
		hashed, _ = bcrypt.GenerateFromPassword([]byte("helpdesk-dummy-secret"), bcrypt.DefaultCost)
	}
	actual, _ := dummyHashes.LoadOrStore(cost, hashed)
	return actual.([]byte)
}

// CompareDummy burns a bcrypt comparison at cost so unknown emails take as
// long as wrong passwords hashed at the same cost.
func CompareDummy(plain string, cost int) {
	_ = bcrypt.CompareHashAndPassword(DummyHash(cost), []byte(plain))
}
