package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: hashpw <password>")
		fmt.Println("Example: hashpw mypassword")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("bcrypt hash: %s\n", hash)
	fmt.Println("\nAdd this to your config:")
	fmt.Printf("  observability:\n")
	fmt.Printf("    web_auth:\n")
	fmt.Printf("      enabled: true\n")
	fmt.Printf("      username: admin\n")
	fmt.Printf("      password_hash: %q\n", string(hash))
}
