package services

import (
	"context"

	"content-hub-cms/models"
	"content-hub-cms/repositories"
)

type MaterialService interface {
	GetPublishedBySlug(ctx context.Context, slug string) (*models.MaterialView, error)
}

type materialService struct {
	repos *repositories.Repositories
}

func NewMaterialService(repos *repositories.Repositories) MaterialService {
	return &materialService{repos: repos}
}

// GetPublishedBySlug returns the live view of a material: published,
// not deleted, with each level reduced to its current state.
func (s *materialService) GetPublishedBySlug(ctx context.Context, slug string) (*models.MaterialView, error) {
	material, err := s.repos.WithContext(ctx).Materials.FindPublishedBySlug(slug)
	if err != nil {
		return nil, notFound(err, "material")
	}
	view := materialView(material)
	return &view, nil
}
