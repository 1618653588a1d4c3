// Package main provides admin management utilities for Girder.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"girder/internal/config"
	"girder/internal/database"
	"girder/internal/models"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin/main.go activate <user_id>         - Activate a user account")
	fmt.Println("  go run ./cmd/admin/main.go deactivate <user_id>       - Deactivate a user account")
	fmt.Println("  go run ./cmd/admin/main.go set-role <user_id> <role>  - Set a user's global role (admin|staff|stakeholder)")
	fmt.Println("  go run ./cmd/admin/main.go list-users                 - List all user accounts")
	fmt.Println("  go run ./cmd/admin/main.go list-pending               - List access requests awaiting review")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	command := os.Args[1]

	switch command {
	case "activate":
		if len(os.Args) < 3 {
			usage()
		}
		setActive(db, os.Args[2], true)

	case "deactivate":
		if len(os.Args) < 3 {
			usage()
		}
		setActive(db, os.Args[2], false)

	case "set-role":
		if len(os.Args) < 4 {
			usage()
		}
		setRole(db, os.Args[2], os.Args[3])

	case "list-users":
		listUsers(db)

	case "list-pending":
		listPending(db)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
	}
}

func loadUser(db *gorm.DB, userID string) *models.User {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %s not found\n", userID)
		} else {
			log.Fatalf("Database error: %v", err)
		}
		os.Exit(1)
	}
	return &user
}

func setActive(db *gorm.DB, userID string, active bool) {
	user := loadUser(db, userID)

	state := "deactivated"
	if active {
		state = "activated"
	}
	if user.Active == active {
		fmt.Printf("User %s (ID: %d) is already %s\n", user.Username, user.ID, state)
		return
	}

	if err := db.Model(user).Update("active", active).Error; err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	fmt.Printf("User %s (ID: %d) %s\n", user.Username, user.ID, state)
}

func setRole(db *gorm.DB, userID, role string) {
	switch models.UserRole(role) {
	case models.UserRoleAdmin, models.UserRoleStaff, models.UserRoleStakeholder:
	default:
		fmt.Printf("Unknown role: %s\n", role)
		os.Exit(1)
	}

	user := loadUser(db, userID)
	if user.Role == models.UserRole(role) {
		fmt.Printf("User %s (ID: %d) already has role %s\n", user.Username, user.ID, role)
		return
	}

	if err := db.Model(user).Update("role", role).Error; err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	fmt.Printf("User %s (ID: %d) is now %s\n", user.Username, user.ID, role)
}

func listUsers(db *gorm.DB) {
	var users []models.User
	if err := db.Order("id ASC").Find(&users).Error; err != nil {
		log.Fatalf("Database error: %v", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found")
		return
	}

	fmt.Printf("Found %d user(s):\n", len(users))
	for _, user := range users {
		state := "active"
		if !user.Active {
			state = "inactive"
		}
		fmt.Printf("  ID: %d | %-12s | %-8s | %s (%s)\n",
			user.ID, user.Role, state, user.Username, user.Email)
	}
}

func listPending(db *gorm.DB) {
	var requests []models.AccessRequest
	err := db.Where("status = ?", models.AccessRequestStatusPending).
		Preload("Contact").
		Preload("Project").
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}

	if len(requests) == 0 {
		fmt.Println("No pending access requests")
		return
	}

	fmt.Printf("Found %d pending access request(s):\n", len(requests))
	for _, req := range requests {
		contact := fmt.Sprintf("contact %d", req.ContactID)
		if req.Contact != nil {
			contact = req.Contact.Username
		}
		project := fmt.Sprintf("project %d", req.ProjectID)
		if req.Project != nil {
			project = req.Project.Number
		}
		fmt.Printf("  %s | %s wants %s on %s | submitted %s\n",
			req.ReferenceID, contact, req.RequestedRole, project,
			req.CreatedAt.Format("2006-01-02 15:04"))
	}
}
