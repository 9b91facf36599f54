package crypto

import "golang.org/x/crypto/bcrypt"

// HashPin hashes a player PIN using bcrypt.
func HashPin(pin string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
}

// ComparePin compares a plaintext PIN to its stored hash.
func ComparePin(hash []byte, pin string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(pin))
}
