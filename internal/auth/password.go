package auth

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// GenerateSalt returns a random per-user salt prepended to the password
// before hashing. bcrypt salts internally as well; the extra column is kept
// so existing credentials survive a future hash migration.
func GenerateSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword hashes salt+password with bcrypt.
func HashPassword(salt, password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(salt+password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether salt+password matches the stored hash.
func VerifyPassword(salt, password, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(salt+password)) == nil
}
