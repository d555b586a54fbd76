package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/playmatatu/ballpit/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

// Prints the ADMIN_TOKEN_HASH value for ADMIN_TOKEN (or the first argument).
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if len(os.Args) > 1 {
		adminToken = os.Args[1]
	}
	if adminToken == "" {
		log.Fatal("Set ADMIN_TOKEN or pass the token as the first argument")
	}

	hash, err := auth.HashAdminToken(adminToken, bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin token: %v", err)
	}

	log.Printf("✓ Admin token hashed; add this to your environment:")
	fmt.Printf("ADMIN_TOKEN_HASH=%s\n", hash)
}
