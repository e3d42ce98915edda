//cmd/seeder/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/Tzelon/thunder-mail/internal/config"
	"github.com/Tzelon/thunder-mail/internal/db"
	"github.com/Tzelon/thunder-mail/internal/model"
	"github.com/Tzelon/thunder-mail/internal/repository"
	"github.com/Tzelon/thunder-mail/internal/secrets"
)

func main() {
	cfg := config.MustLoad()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	schemaFiles := []string{
		"seed/schema.sql",
	}
	for _, file := range schemaFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", file, err)
		}
		if _, err := conn.Exec(string(content)); err != nil {
			log.Fatalf("failed to execute %s: %v", file, err)
		}
		fmt.Printf("Applied: %s\n", file)
	}

	// Demo org, credentials from the environment. Skipped when it already
	// exists so the seeder is re-runnable.
	orgRepo := &repository.OrgRepository{DB: conn, Cipher: secrets.NewCipher(cfg.EncryptionKey)}

	domain := envOr("DEMO_ORG_DOMAIN", "example.com")
	existing, err := orgRepo.GetByDomain(domain)
	if err != nil {
		log.Fatal(err)
	}
	if existing != nil {
		fmt.Printf("Org %s already seeded (api key %s)\n", domain, existing.APIKeyUUID)
		return
	}

	org := &model.Org{
		Domain:             domain,
		Name:               envOr("DEMO_ORG_NAME", "Demo Org"),
		APIKeyUUID:         uuid.NewString(),
		SESAccessKeyID:     os.Getenv("SES_ACCESS_KEY_ID"),
		SESSecretAccessKey: os.Getenv("SES_SECRET_ACCESS_KEY"),
		SESRegion:          os.Getenv("SES_REGION"),
		SQSUrl:             os.Getenv("SQS_URL"),
	}
	if err := orgRepo.Create(org); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Seeded org %s with api key %s\n", org.Domain, org.APIKeyUUID)
	fmt.Println("Database seeding completed successfully!")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
