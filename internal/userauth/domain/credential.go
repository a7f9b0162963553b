package domain

// Credential is what the user directory hands the credential verifier. The
// hashing scheme is encoded in PasswordHash itself.
type Credential struct {
	Subject      string
	Identity     string
	PasswordHash string
	Roles        []string
	Active       bool
}

// Identity is the sanitized result of a successful login or token
// validation. It is request scoped and never persisted.
type Identity struct {
	Subject  string   `json:"sub"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}
