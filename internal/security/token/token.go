// Package token genera los tokens opacos de un solo uso y sus hashes.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Size es la entropía en bytes: 32 bytes = 256 bits = 64 chars hex.
const Size = 32

// Generate retorna un token aleatorio hex de 64 caracteres.
func Generate() (string, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SHA256Hex es lo que se persiste: el valor crudo nunca se guarda.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
