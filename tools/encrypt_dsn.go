package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/authmanager/internal/security/secretbox"
)

// Cifra o descifra valores con SECRETBOX_MASTER_KEY, con el mismo formato que
// usa el store para las URLs y credenciales de los tenants.
//
//	go run ./tools genkey
//	go run ./tools encrypt 'postgres://...'
//	go run ./tools decrypt '<nonce>|<ciphertext>'
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run ./tools genkey | encrypt <plaintext> | decrypt <ciphertext>")
	}
	_ = godotenv.Load()

	if os.Args[1] == "genkey" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("entropy: %v", err)
		}
		fmt.Println(base64.StdEncoding.EncodeToString(b))
		return
	}
	if len(os.Args) < 3 {
		log.Fatalf("%s needs a value", os.Args[1])
	}

	box, err := secretbox.New(os.Getenv("SECRETBOX_MASTER_KEY"))
	if err != nil {
		log.Fatalf("SECRETBOX_MASTER_KEY: %v", err)
	}

	switch os.Args[1] {
	case "encrypt":
		out, err := box.Encrypt(os.Args[2])
		if err != nil {
			log.Fatalf("Encryption failed: %v", err)
		}
		fmt.Println(out)
	case "decrypt":
		out, err := box.Decrypt(os.Args[2])
		if err != nil {
			log.Fatalf("Decryption failed: %v", err)
		}
		fmt.Println(out)
	default:
		log.Fatalf("unknown command %q", os.Args[1])
	}
}
