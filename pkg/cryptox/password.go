package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Scheme names the algorithm a stored credential was produced with.
type Scheme string

const (
	// SchemeArgon2id is the current scheme. New and migrated credentials use it.
	SchemeArgon2id Scheme = "argon2id"
	// SchemeBcrypt is accepted for verification only.
	SchemeBcrypt Scheme = "bcrypt"
	// SchemeLegacyPlain marks a credential stored without any hashing.
	SchemeLegacyPlain Scheme = "legacy_plain"
)

// ErrPasswordMismatch is returned when a password does not match the stored credential.
var ErrPasswordMismatch = errors.New("password does not match")

// dummyHash is verified against when there is no stored credential so that
// unknown identities cost the same as wrong passwords.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$c29tZXNhbHRzb21lc2FsdA$8cZlhWs1XjmD6pujtcH+5eQkYqGzuTEbSaBNqgjuxKg"

// IdentifyScheme derives the scheme from the encoded credential.
// Anything that is neither a PHC argon2id string nor a bcrypt hash is treated
// as a legacy plaintext value.
func IdentifyScheme(encoded string) Scheme {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return SchemeArgon2id
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return SchemeBcrypt
	default:
		return SchemeLegacyPlain
	}
}

// NeedsRehash reports whether a credential should be re-encoded with the current scheme.
func NeedsRehash(encoded string) bool {
	return IdentifyScheme(encoded) != SchemeArgon2id
}

// HashPassword generates a PHC-format Argon2id hash string including salt and parameters.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		iterations,
		memory,
		parallelism,
		keyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks a password against an encoded credential of any known
// scheme and reports which scheme matched. A nil error means the password is correct.
//
// A value with a bcrypt prefix that bcrypt cannot parse is compared as a
// legacy plaintext value instead.
func VerifyPassword(password, encoded string) (Scheme, error) {
	switch scheme := IdentifyScheme(encoded); scheme {
	case SchemeArgon2id:
		return scheme, verifyArgon2id(password, encoded)
	case SchemeBcrypt:
		err := verifyBcrypt(password, encoded)
		if err == nil || errors.Is(err, ErrPasswordMismatch) {
			return scheme, err
		}
		return SchemeLegacyPlain, verifyLegacyPlain(password, encoded)
	default:
		return scheme, verifyLegacyPlain(password, encoded)
	}
}

// VerifyDummy burns the same work as an argon2id verification and always fails.
func VerifyDummy(password string) error {
	_ = verifyArgon2id(password, dummyHash)
	return ErrPasswordMismatch
}

func verifyArgon2id(password, encoded string) error {
	// $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return errors.New("invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return errors.New("invalid hash format: not argon2id")
	}
	if parts[2] != "v=19" {
		return errors.New("invalid hash format: wrong version")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("invalid hash format: failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode hash: %w", err)
	}

	computed := argon2.IDKey(
		[]byte(password+GetPepper()),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - hash lengths are tiny
	)
	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// Bcrypt hashes predate the pepper and are compared without it.
func verifyBcrypt(password, encoded string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

func verifyLegacyPlain(password, stored string) error {
	if stored == "" {
		return ErrPasswordMismatch
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(stored)) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}
