package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/orbitapp/backend/internal/bootstrap"
	"github.com/orbitapp/backend/internal/infrastructure/database"
)

// seed creates the schema and system data without starting the server.
// Useful for provisioning a fresh database before first boot.
func main() {
	_ = godotenv.Load()

	conn, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := bootstrap.InitializeSchema(conn); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := bootstrap.InitializeSystemData(conn); err != nil {
		log.Fatalf("Failed to initialize system data: %v", err)
	}

	log.Println("✅ Seed complete")
}
