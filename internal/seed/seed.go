// Package seed provides database seeding utilities for development and
// testing. It populates users, projects, and a plausible access-request
// history so the workflow surfaces have data to show.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"girder/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumStaff        int
	NumStakeholders int
	NumProjects     int
	NumRequests     int
	ShouldClean     bool
}

// DefaultOptions is the preset used by Run.
var DefaultOptions = Options{
	NumStaff:        4,
	NumStakeholders: 20,
	NumProjects:     8,
	NumRequests:     40,
}

// Run seeds the database with the default preset.
func Run(db *gorm.DB) error {
	return Seed(db, DefaultOptions)
}

// Seed populates the database with demo data.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding %d staff, %d stakeholders, %d projects, %d access requests...",
		opts.NumStaff, opts.NumStakeholders, opts.NumProjects, opts.NumRequests)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	f := NewFactory(db)

	staff, err := f.CreateUsers(opts.NumStaff, models.UserRoleStaff)
	if err != nil {
		return fmt.Errorf("failed to create staff users: %w", err)
	}
	stakeholders, err := f.CreateUsers(opts.NumStakeholders, models.UserRoleStakeholder)
	if err != nil {
		return fmt.Errorf("failed to create stakeholders: %w", err)
	}
	log.Printf("created %d staff and %d stakeholder users", len(staff), len(stakeholders))

	projects, err := f.CreateProjects(opts.NumProjects)
	if err != nil {
		return fmt.Errorf("failed to create projects: %w", err)
	}
	log.Printf("created %d projects", len(projects))

	requests, err := f.CreateAccessRequests(stakeholders, projects, staff, opts.NumRequests)
	if err != nil {
		return fmt.Errorf("failed to create access requests: %w", err)
	}
	log.Printf("created %d access requests", len(requests))

	log.Println("Database seeding completed.")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing data...")
	sql := `TRUNCATE TABLE audit_logs, access_requests, projects, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db *gorm.DB
	r  *rand.Rand

	// All seeded users share one bcrypt hash so logins are predictable and
	// seeding stays fast.
	passwordHash string
}

// SeedPassword is the plaintext password every seeded account accepts.
const SeedPassword = "GirderDemo123!"

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // weak randomness is fine for demo data
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.MinCost)
	if err != nil {
		// bcrypt only fails on invalid cost, which MinCost is not
		panic(err)
	}
	return &Factory{db: db, r: r, passwordHash: string(hash)}
}

// CreateUsers persists count users with the given role.
func (f *Factory) CreateUsers(count int, role models.UserRole) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s_%s%d", gofakeit.FirstName(), gofakeit.LastName(), f.r.Intn(10000))
		user := models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@%s", username, gofakeit.DomainName()),
			Password: f.passwordHash,
			Role:     role,
			Active:   true,
			Company:  gofakeit.Company(),
		}
		if role != models.UserRoleStakeholder {
			user.Company = ""
		}
		if err := f.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// CreateProjects persists count projects. Roughly half share a client
// reference with another project so the sibling-grant rule has material.
func (f *Factory) CreateProjects(count int) ([]models.Project, error) {
	clients := make([]string, 0, count/2+1)
	for i := 0; i < count/2+1; i++ {
		clients = append(clients, fmt.Sprintf("client-%s", gofakeit.LetterN(6)))
	}

	projects := make([]models.Project, 0, count)
	for i := 0; i < count; i++ {
		project := models.Project{
			Name:      fmt.Sprintf("%s %s", gofakeit.Street(), projectKind(f.r)),
			Number:    fmt.Sprintf("P-%04d-%s", i+1, gofakeit.LetterN(3)),
			ClientRef: clients[f.r.Intn(len(clients))],
			Archived:  f.r.Intn(10) == 0,
		}
		if err := f.db.Create(&project).Error; err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func projectKind(r *rand.Rand) string {
	kinds := []string{"Tower", "Depot", "Bridge", "Terminal", "Plant", "Campus", "Interchange"}
	return kinds[r.Intn(len(kinds))]
}

var accessRoles = []string{
	models.AccessRoleViewer,
	models.AccessRoleCommenter,
	models.AccessRoleContributor,
	models.AccessRoleManager,
}

// CreateAccessRequests persists up to count requests spread across the given
// stakeholders and projects with a mix of lifecycle states. At most one open
// request per contact/project pair is ever created.
func (f *Factory) CreateAccessRequests(contacts []models.User, projects []models.Project, deciders []models.User, count int) ([]models.AccessRequest, error) {
	if len(contacts) == 0 || len(projects) == 0 {
		return nil, nil
	}

	type pair struct{ contact, project uint }
	openPairs := make(map[pair]bool)

	requests := make([]models.AccessRequest, 0, count)
	for i := 0; i < count; i++ {
		contact := contacts[f.r.Intn(len(contacts))]
		project := projects[f.r.Intn(len(projects))]

		status := randomStatus(f.r)
		key := pair{contact.ID, project.ID}
		if status.IsOpen() {
			if openPairs[key] {
				continue
			}
			openPairs[key] = true
		}

		createdAt := time.Now().Add(-time.Duration(f.r.Intn(90*24)) * time.Hour)
		request := models.AccessRequest{
			ReferenceID:   uuid.New().String(),
			ContactID:     contact.ID,
			ProjectID:     project.ID,
			Status:        status,
			RequestedRole: accessRoles[f.r.Intn(len(accessRoles))],
			Justification: gofakeit.Sentence(8),
			CreatedAt:     createdAt,
		}

		if status != models.AccessRequestStatusPending {
			processedAt := createdAt.Add(time.Duration(1+f.r.Intn(72)) * time.Hour)
			request.ProcessedAt = &processedAt

			// Rejections are always human decisions. Approvals are a mix of
			// human and rule-based grants.
			human := status == models.AccessRequestStatusRejected || f.r.Intn(3) > 0
			if human {
				if len(deciders) == 0 {
					continue
				}
				request.ProcessedByID = &deciders[f.r.Intn(len(deciders))].ID
			} else {
				reason := "role_below_threshold"
				request.AutoApprovalReason = &reason
			}
		}

		if err := f.db.Create(&request).Error; err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func randomStatus(r *rand.Rand) models.AccessRequestStatus {
	switch r.Intn(10) {
	case 0, 1, 2:
		return models.AccessRequestStatusPending
	case 3, 4, 5, 6:
		return models.AccessRequestStatusApproved
	case 7, 8:
		return models.AccessRequestStatusRejected
	default:
		return models.AccessRequestStatusRevoked
	}
}
