package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes pw at the default cost, named to match the
// teacher's user.HashPassword/user.CheckPassword pair now that there is a
// single admin credential (RESEARCH_ADMIN_PASSWORD_HASH) instead of a
// user table.
func HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether pw matches hash.
func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}
