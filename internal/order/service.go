package order

import (
	"context"
	"strings"

	"github.com/ahinestrog/bookstore/internal/logging"
)

// Service serves order reads and administrative status changes.
type Service struct {
	repo   *Repository
	events Events
}

func NewService(repo *Repository, events Events) *Service {
	return &Service{repo: repo, events: events}
}

// ListOrders returns only the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) GetOrder(ctx context.Context, userID, orderID int64) (*Order, error) {
	return s.repo.Get(ctx, userID, orderID)
}

type StatusChangedPayload struct {
	OrderID        int64  `json:"order_id"`
	Status         Status `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// UpdateStatus is the administrative transition. A blank tracking number
// leaves the current one in place. order.status_changed is only published
// when the status or tracking number actually changed.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, to Status, tracking string) (*Order, error) {
	var tn *string
	if t := strings.TrimSpace(tracking); t != "" {
		tn = &t
	}
	changed, err := s.repo.UpdateStatus(ctx, orderID, to, tn)
	if err != nil {
		return nil, err
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if changed && s.events != nil {
		p := StatusChangedPayload{OrderID: o.ID, Status: o.Status}
		if o.TrackingNumber != nil {
			p.TrackingNumber = *o.TrackingNumber
		}
		if err := s.events.PublishJSON(ctx, RKOrderStatusChanged, p); err != nil {
			logging.FromCtx(ctx).Warn().Err(err).Int64("order_id", o.ID).Msg("order.status_changed not published")
		}
	}
	return o, nil
}
