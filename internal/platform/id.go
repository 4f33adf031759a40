package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 10

// NewID returns a new entity identifier.
func NewID() string {
	return uuid.New().String()
}

// NewName returns a random lowercase identifier with the given prefix.
func NewName(prefix string) string {
	b := make([]byte, shortIDLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return prefix + string(b)
}

// NewLocalDeploymentID synthesizes a platform deployment id for CLI-driven
// deployments where the CLI does not report one.
func NewLocalDeploymentID() string {
	return NewName("local-")
}
