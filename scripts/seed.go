//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/accesscode"
	"github.com/cmclain4200/approcure/internal/auth"
	"github.com/cmclain4200/approcure/internal/database"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/cmclain4200/approcure/internal/projects"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/cmclain4200/approcure/pkg/config"
	"github.com/cmclain4200/approcure/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	st := store.New(db, cfg.Store.Timeout())
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(st, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" {
		email = "owner@example.com"
	}
	if password == "" {
		password = "changeme123"
	}
	if name == "" {
		name = "Owner"
	}

	resp, err := authService.Register(ctx, auth.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		OrgName:  "Demo Builders",
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			fmt.Printf("Owner already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create owner: %v", err)
	}

	owner, err := access.NewResolver(st).Resolve(ctx, resp.User.ID)
	if err != nil {
		log.Fatalf("failed to resolve owner: %v", err)
	}

	projectService := projects.NewService(st, logger)
	project, err := projectService.Create(ctx, owner, projects.CreateInput{
		Name:          "Riverside Duplex",
		JobNumber:     "J-1001",
		Address:       "12 River Rd",
		MonthlyBudget: 25000,
	})
	if err != nil {
		log.Fatalf("failed to create project: %v", err)
	}

	// The project binding above is not on the resolved identity yet.
	owner.ProjectBindings[project.ID] = rbac.ProjectRoleAdmin

	for _, cc := range [][3]string{
		{"03-100", "Concrete forming", "materials"},
		{"06-100", "Rough carpentry", "materials"},
		{"01-500", "Temporary facilities", "equipment"},
	} {
		if _, err := projectService.CreateCostCode(ctx, owner, cc[0], cc[1], cc[2]); err != nil {
			log.Fatalf("failed to create cost code %s: %v", cc[0], err)
		}
	}
	for _, v := range []string{"Home Depot", "84 Lumber", "United Rentals"} {
		if _, err := projectService.CreateVendor(ctx, owner, v); err != nil {
			log.Fatalf("failed to create vendor %s: %v", v, err)
		}
	}

	codes := accesscode.NewService(st, events.Nop{}, logger)
	code, err := codes.Issue(ctx, owner, accesscode.IssueInput{
		OrgRole:       rbac.OrgRoleMember,
		MaxUses:       10,
		ExpiresInDays: 30,
		ProjectID:     &project.ID,
		ProjectRole:   rbac.ProjectRoleForeman,
	})
	if err != nil {
		log.Fatalf("failed to issue access code: %v", err)
	}

	fmt.Printf("Seed data created successfully!\n")
	fmt.Printf("Email: %s\n", resp.User.Email)
	fmt.Printf("Organization: %s\n", resp.User.Organization.Name)
	fmt.Printf("Project: %s (%s)\n", project.Name, project.ID)
	fmt.Printf("Foreman access code: %s\n", code.Code)
	fmt.Printf("Token: %s\n", resp.Token)
}
