package application

import (
	"context"
	"fmt"
	"net/http"

	"github.com/faith-connect-biz/faithconnect-go/internal/adapter/driven/api"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/model"
)

// DirectoryService is the typed surface over the directory endpoints. It
// exists so every classifier branch is exercised by a real call site; the
// payload shapes are intentionally thin.
type DirectoryService struct {
	client *api.Client
}

// NewDirectoryService creates the directory surface.
func NewDirectoryService(client *api.Client) *DirectoryService {
	return &DirectoryService{client: client}
}

// ListBusinesses returns the public business directory.
func (s *DirectoryService) ListBusinesses(ctx context.Context) ([]model.Business, error) {
	var out []model.Business
	if err := s.client.Do(ctx, http.MethodGet, "businesses/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBusiness fetches one listing's detail view. Detail reads require a
// session.
func (s *DirectoryService) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	var out model.Business
	if err := s.client.Do(ctx, http.MethodGet, fmt.Sprintf("businesses/%s/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyBusiness returns the listing owned by the signed-in user.
func (s *DirectoryService) MyBusiness(ctx context.Context) (*model.Business, error) {
	var out model.Business
	if err := s.client.Do(ctx, http.MethodGet, "businesses/my-business/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListServices returns the public services directory.
func (s *DirectoryService) ListServices(ctx context.Context) ([]model.Service, error) {
	var out []model.Service
	if err := s.client.Do(ctx, http.MethodGet, "services/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProducts returns the public products directory.
func (s *DirectoryService) ListProducts(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	if err := s.client.Do(ctx, http.MethodGet, "products/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateReview posts a review for a business.
func (s *DirectoryService) CreateReview(ctx context.Context, businessID string, input model.ReviewInput) (*model.Review, error) {
	var out model.Review
	path := fmt.Sprintf("businesses/%s/reviews/", businessID)
	if err := s.client.Do(ctx, http.MethodPost, path, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleLike flips the signed-in user's like on a review.
func (s *DirectoryService) ToggleLike(ctx context.Context, reviewID string) error {
	return s.client.Do(ctx, http.MethodPost, fmt.Sprintf("reviews/%s/like/", reviewID), nil, nil)
}

// AddFavorite adds a business to the signed-in user's favorites.
func (s *DirectoryService) AddFavorite(ctx context.Context, businessID string) error {
	return s.client.Do(ctx, http.MethodPost, fmt.Sprintf("businesses/%s/favorites/", businessID), nil, nil)
}

// GetBusinessHours returns a business's weekly schedule. Public read.
func (s *DirectoryService) GetBusinessHours(ctx context.Context, businessID string) (*model.BusinessHours, error) {
	var out model.BusinessHours
	if err := s.client.Do(ctx, http.MethodGet, fmt.Sprintf("business-hours/%s/", businessID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBusinessHours replaces a business's weekly schedule. Owner only.
func (s *DirectoryService) UpdateBusinessHours(ctx context.Context, hours model.BusinessHours) error {
	path := fmt.Sprintf("business-hours/%s/", hours.BusinessID)
	return s.client.Do(ctx, http.MethodPatch, path, hours, nil)
}

// GetAnalytics returns the public view-count summary for a business.
func (s *DirectoryService) GetAnalytics(ctx context.Context, businessID string) (*model.AnalyticsSummary, error) {
	var out model.AnalyticsSummary
	if err := s.client.Do(ctx, http.MethodGet, fmt.Sprintf("analytics/businesses/%s/", businessID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
