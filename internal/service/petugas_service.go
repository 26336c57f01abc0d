package service

import (
	"context"

	"github.com/noah-isme/laporpak-api/internal/models"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
)

type usersByRole interface {
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// PetugasService lists field workers a report can be assigned to.
type PetugasService struct {
	users usersByRole
}

// NewPetugasService constructs the service.
func NewPetugasService(users usersByRole) *PetugasService {
	return &PetugasService{users: users}
}

// Available returns every petugas ordered by name.
func (s *PetugasService) Available(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListByRole(ctx, models.RolePetugas)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list petugas")
	}
	return users, nil
}
