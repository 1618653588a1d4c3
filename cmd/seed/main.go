// Command main runs the database seeder for Girder.
package main

import (
	"flag"
	"log"

	"girder/internal/config"
	"girder/internal/database"
	"girder/internal/seed"
)

func main() {
	numStaff := flag.Int("staff", seed.DefaultOptions.NumStaff, "Number of staff users to create")
	numStakeholders := flag.Int("stakeholders", seed.DefaultOptions.NumStakeholders, "Number of stakeholder users to create")
	numProjects := flag.Int("projects", seed.DefaultOptions.NumProjects, "Number of projects to create")
	numRequests := flag.Int("requests", seed.DefaultOptions.NumRequests, "Number of access requests to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d staff, %d stakeholders, %d projects, %d requests, clean=%v",
		*numStaff, *numStakeholders, *numProjects, *numRequests, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		NumStaff:        *numStaff,
		NumStakeholders: *numStakeholders,
		NumProjects:     *numProjects,
		NumRequests:     *numRequests,
		ShouldClean:     *shouldClean,
	}
	if err := seed.Seed(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("All seeded accounts accept the password %q", seed.SeedPassword)
}
