package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier checks a login attempt against the operator's stored
// password hash. There is exactly one account, so no lookup is involved;
// the hash comes straight from configuration.
type PasswordVerifier interface {
	// Compare returns nil when password matches hashedPassword. The
	// error carries no detail worth surfacing to the caller; a failed
	// login is just a failed login.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier verifies the operator password against its configured
// bcrypt hash (produced by cmd/hash-generator).
type BcryptVerifier struct{}

// NewBcryptVerifier creates a new BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements PasswordVerifier with bcrypt's constant-time
// comparison.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
