package oauth

import "github.com/google/uuid"

// GenerateState returns a fresh random state value for CSRF protection.
// A new value is generated for every flow that does not supply its own.
func GenerateState() string {
	return uuid.NewString()
}
