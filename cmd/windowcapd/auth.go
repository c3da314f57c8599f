package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/allaspectsdev/windowcapd/internal/vault"
)

func cmdAuth(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: windowcapd auth <show|set|delete>")
		os.Exit(1)
	}

	v := vault.New()

	switch args[0] {
	case "show":
		token, err := v.Token()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading auth token: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n", token)

	case "set":
		token, err := generateToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error generating token: %v\n", err)
			os.Exit(1)
		}
		if err := v.SetToken(token); err != nil {
			fmt.Fprintf(os.Stderr, "error storing token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Ingestion socket auth token generated and stored in the OS keychain.")
		fmt.Println("The ingestion socket does not check clients for this token; it is")
		fmt.Println("resolved at daemon startup when auth is enabled:")
		fmt.Println()
		fmt.Printf("  %s\n", token)

	case "delete":
		if err := v.DeleteToken(); err != nil {
			fmt.Fprintf(os.Stderr, "error deleting token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Auth token deleted")

	default:
		fmt.Fprintf(os.Stderr, "unknown auth command: %s\n", args[0])
		os.Exit(1)
	}
}

// generateToken returns a random 32-byte hex-encoded token.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
