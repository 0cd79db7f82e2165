package cart

import (
	"context"
)

// Service wraps the repository so handlers always get the full cart back
// after a mutation.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) Get(ctx context.Context, userID int64) (*Cart, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Cart{UserID: userID, Items: items}, nil
}

func (s *Service) Add(ctx context.Context, userID, bookID int64, qty int) (*Cart, error) {
	if err := s.repo.Add(ctx, userID, bookID, qty); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) SetQuantity(ctx context.Context, userID, bookID int64, qty int) (*Cart, error) {
	if err := s.repo.SetQuantity(ctx, userID, bookID, qty); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, bookID int64) (*Cart, error) {
	if err := s.repo.Remove(ctx, userID, bookID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	_, err := s.repo.Clear(ctx, userID)
	return err
}
