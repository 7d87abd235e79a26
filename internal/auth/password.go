package auth

import "golang.org/x/crypto/bcrypt"

// MinPasswordLength is enforced on reset and change.
const MinPasswordLength = 8

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
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

// Hasher binds HashPassword to a cost.
func Hasher(cost int) func(string) (string, error) {
	return func(password string) (string, error) {
		return HashPassword(password, cost)
	}
}
