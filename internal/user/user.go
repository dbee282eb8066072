// Package user defines the user record kept by the credential store
// and resolved by the auth gate for every protected request.
package user

// User represents a registered account.
type User struct {
	// ID is the unique, server-generated identifier of the user, meaning a UUID.
	ID string `json:"id"`

	// Username is unique across the store and is used as the token subject.
	Username string `json:"username"`

	Email string `json:"email"`

	// PasswordHash is the bcrypt digest of the (truncated) password.
	PasswordHash string `json:"password_hash"`
}
