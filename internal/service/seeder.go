package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finflow-identity/internal/model"
	"finflow-identity/internal/repository"
)

// Seeder ensures the role catalogue and a default admin account exist on
// startup so a fresh deployment is immediately usable.
type Seeder struct {
	users repository.UserRepository
	roles repository.RoleRepository

	adminPassword string
}

func NewSeeder(users repository.UserRepository, roles repository.RoleRepository, adminPassword string) *Seeder {
	if adminPassword == "" {
		adminPassword = "admin123"
	}
	return &Seeder{users: users, roles: roles, adminPassword: adminPassword}
}

func (s *Seeder) Run(ctx context.Context) error {
	for _, role := range []model.Role{
		{Name: RoleUser, Description: "Standard User"},
		{Name: RoleAdmin, Description: "Administrator"},
	} {
		if err := s.roles.Create(ctx, role); err != nil {
			return err
		}
	}

	exists, err := s.users.ExistsByUsername(ctx, "admin")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.adminPassword), bcryptCost)
	if err != nil {
		return err
	}

	admin := model.User{
		ID:           uuid.NewString(),
		Username:     "admin",
		Email:        "admin@finflow.com",
		PasswordHash: string(hash),
		FirstName:    "Super",
		LastName:     "Admin",
		Roles:        []string{RoleAdmin},
		IsActive:     true,
		Verified:     true,
		RegisterDate: time.Now().UTC(),
	}

	if _, err := s.users.Create(ctx, admin); err != nil {
		return err
	}

	slog.Info("seeded default admin user", "username", admin.Username)
	return nil
}
