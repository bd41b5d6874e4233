package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/herb_shop/internal/events"
	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/models"
	"github.com/Skotchmaster/herb_shop/internal/repo"
)

type CartService struct {
	Repo    *repo.GormRepo
	Catalog *CatalogService
	Locks   *UserLocks
	Events  events.Publisher
}

// LineGroup is every line entry of one title folded into a quantity.
type LineGroup struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

// AddItem appends one unit of title at the catalog price. A non-nil clientPrice
// must equal the catalog price.
func (s *CartService) AddItem(ctx context.Context, userID uint, title string, clientPrice *int64) (*models.LineEntry, error) {
	l := logging.FromContext(ctx).With("svc", "cart.add_item")

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", ErrValidation)
	}

	price, err := s.Catalog.PriceOf(ctx, title)
	if err != nil {
		return nil, err
	}
	if clientPrice != nil && *clientPrice != price {
		l.Warn("add_item_rejected", "status", 400, "reason", "price mismatch",
			"title", title, "client_price", *clientPrice, "catalog_price", price)
		return nil, fmt.Errorf("%q submitted at %d, catalog says %d: %w", title, *clientPrice, price, ErrPriceMismatch)
	}

	unlock := s.Locks.Lock(userID)
	line, err := s.Repo.AddLine(ctx, userID, title, price)
	unlock()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		l.Error("add_item_failed", "status", 500, "error", err)
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicCart, "cart_item_added", userID, map[string]any{
		"title": line.Title,
		"count": line.Count,
		"price": line.Price,
	})
	return line, nil
}

func (s *CartService) IncrementItem(ctx context.Context, userID uint, title string) (*models.LineEntry, error) {
	return s.AddItem(ctx, userID, title, nil)
}

func (s *CartService) RemoveItem(ctx context.Context, userID uint, title string) error {
	l := logging.FromContext(ctx).With("svc", "cart.remove_item")

	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required: %w", ErrValidation)
	}

	unlock := s.Locks.Lock(userID)
	deleted, err := s.Repo.RemoveLines(ctx, userID, title)
	unlock()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		l.Error("remove_item_failed", "status", 500, "error", err)
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("%q not in cart: %w", title, ErrNotFound)
	}

	events.Emit(ctx, s.Events, events.TopicCart, "cart_item_removed", userID, map[string]any{
		"title":    title,
		"quantity": deleted,
	})
	return nil
}

// DecrementItem drops one unit of title. Decrementing an absent title is a no-op.
func (s *CartService) DecrementItem(ctx context.Context, userID uint, title string) error {
	l := logging.FromContext(ctx).With("svc", "cart.decrement_item")

	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required: %w", ErrValidation)
	}

	unlock := s.Locks.Lock(userID)
	deleted, err := s.Repo.DecrementLine(ctx, userID, title)
	unlock()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		l.Error("decrement_item_failed", "status", 500, "error", err)
		return err
	}

	if deleted {
		events.Emit(ctx, s.Events, events.TopicCart, "cart_item_decremented", userID, map[string]any{"title": title})
	}
	return nil
}

func (s *CartService) Subtotal(ctx context.Context, userID uint) (int64, error) {
	total, err := s.Repo.Subtotal(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return total, err
}

// Lines groups the cart by title in order of first insertion.
func (s *CartService) Lines(ctx context.Context, userID uint) ([]LineGroup, error) {
	rows, err := s.Repo.ListLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	return groupLines(rows), nil
}

func groupLines(rows []models.LineEntry) []LineGroup {
	groups := make([]LineGroup, 0)
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.Title]
		if !ok {
			index[r.Title] = len(groups)
			groups = append(groups, LineGroup{Title: r.Title, UnitPrice: r.Price})
			i = len(groups) - 1
		}
		groups[i].Quantity++
		groups[i].LineTotal += r.Price
	}
	return groups
}
