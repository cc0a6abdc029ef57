package main

import (
	"errors"
	"log"
	"os"
	"strings"

	"aurum/internal/config"
	"aurum/internal/models"
	"aurum/internal/repositories"
	"aurum/internal/services/password"

	"gorm.io/gorm"
)

// Seeds or promotes the admin account named by ADMIN_USERNAME,
// ADMIN_EMAIL and ADMIN_PASSWORD. Safe to run repeatedly.
func main() {
	config.LoadEnv()

	adminUsername := strings.ToLower(os.Getenv("ADMIN_USERNAME"))
	adminEmail := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_USERNAME, ADMIN_EMAIL, and ADMIN_PASSWORD must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer func() {
		if repositories.DB != nil {
			sqlDB, err := repositories.DB.DB()
			if err != nil {
				log.Printf("⚠️ Failed to get SQL DB instance: %v", err)
			} else if err := sqlDB.Close(); err != nil {
				log.Printf("⚠️ Failed to close PostgreSQL connection: %v", err)
			}
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("⚠️ Failed to close Redis connection: %v", err)
			}
		}
	}()

	var existing models.Identity
	result := repositories.DB.Where("username = ?", adminUsername).First(&existing)
	if result.Error == nil {
		if existing.IsAdmin() {
			log.Println("Admin account already exists")
			return
		}
		if err := repositories.DB.Model(&existing).Update("role", models.RoleAdmin).Error; err != nil {
			log.Fatal("Failed to promote existing account:", err)
		}
		log.Printf("✅ Promoted %s to admin", adminUsername)
		return
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		log.Fatal("Failed to look up admin account:", result.Error)
	}

	hash, err := password.Hash(adminPassword)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	admin := models.Identity{
		Username:     adminUsername,
		Email:        &adminEmail,
		PasswordHash: hash,
		AuthType:     models.AuthTypeCredential,
		Role:         models.RoleAdmin,
	}
	if err := repositories.DB.Create(&admin).Error; err != nil {
		log.Fatal("Failed to create admin account:", err)
	}

	log.Println("✅ Admin account created successfully!")
}
