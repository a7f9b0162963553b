package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "userauth-test-pepper")
	os.Remove(pepperPath)
	SetPepperPath(pepperPath)

	code := m.Run()
	os.Remove(pepperPath)
	os.Exit(code)
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
			require.Len(t, strings.Split(hash, "$"), 6)
			require.Equal(t, SchemeArgon2id, IdentifyScheme(hash))

			scheme, err := VerifyPassword(tt.password, hash)
			require.NoError(t, err)
			require.Equal(t, SchemeArgon2id, scheme)

			_, err = VerifyPassword(tt.password+"x", hash)
			require.ErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := HashPassword("samepassword")
	require.NoError(t, err)
	hash2, err := HashPassword("samepassword")
	require.NoError(t, err)
	require.NotEqual(t, hash1, hash2)
}

func TestIdentifyScheme(t *testing.T) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name    string
		encoded string
		want    Scheme
		rehash  bool
	}{
		{"argon2id", "$argon2id$v=19$m=19456,t=2,p=1$salt$hash", SchemeArgon2id, false},
		{"bcrypt", string(bcryptHash), SchemeBcrypt, true},
		{"bcrypt 2y", "$2y$10$abcdefghijklmnopqrstuv", SchemeBcrypt, true},
		{"plaintext", "admin123", SchemeLegacyPlain, true},
		{"empty", "", SchemeLegacyPlain, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IdentifyScheme(tt.encoded))
			require.Equal(t, tt.rehash, NeedsRehash(tt.encoded))
		})
	}
}

func TestVerifyPassword_Legacy(t *testing.T) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		stored   string
		scheme   Scheme
		wantErr  error
	}{
		{"bcrypt match", "secret", string(bcryptHash), SchemeBcrypt, nil},
		{"bcrypt mismatch", "wrong", string(bcryptHash), SchemeBcrypt, ErrPasswordMismatch},
		{"plaintext match", "admin123", "admin123", SchemeLegacyPlain, nil},
		{"plaintext mismatch", "admin124", "admin123", SchemeLegacyPlain, ErrPasswordMismatch},
		{"empty stored value never matches", "", "", SchemeLegacyPlain, ErrPasswordMismatch},
		{"plaintext with bcrypt prefix match", "$2a$hunter2", "$2a$hunter2", SchemeLegacyPlain, nil},
		{"plaintext with bcrypt prefix mismatch", "$2a$hunter3", "$2a$hunter2", SchemeLegacyPlain, ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheme, err := VerifyPassword(tt.password, tt.stored)
			require.Equal(t, tt.scheme, scheme)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestVerifyPassword_MalformedArgon2id(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"too few parts", "$argon2id$v=19$m=1,t=1,p=1$salt"},
		{"wrong version", "$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$garbage$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyPassword("anything", tt.encoded)
			require.Error(t, err)
		})
	}
}

func TestVerifyDummy(t *testing.T) {
	require.ErrorIs(t, VerifyDummy("anything"), ErrPasswordMismatch)
}
