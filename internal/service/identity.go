package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Skotchmaster/herb_shop/internal/events"
	"github.com/Skotchmaster/herb_shop/internal/logging"
	"github.com/Skotchmaster/herb_shop/internal/models"
	"github.com/Skotchmaster/herb_shop/internal/repo"
)

const (
	MinNameLength = 3
	MaxNameLength = 60
)

type IdentityService struct {
	Repo   *repo.GormRepo
	Locks  *UserLocks
	Events events.Publisher
}

func (s *IdentityService) Register(ctx context.Context, name string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "identity.register")

	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinNameLength {
		return nil, fmt.Errorf("name must have at least %d characters: %w", MinNameLength, ErrNameTooShort)
	}
	if n > MaxNameLength {
		return nil, fmt.Errorf("name must have at most %d characters: %w", MaxNameLength, ErrNameTooLong)
	}

	user, cart, err := s.Repo.CreateUserWithCart(ctx, name)
	if err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) || s.nameTaken(ctx, name) {
			l.Warn("register_failed", "status", 409, "reason", "name already registered")
			return nil, fmt.Errorf("name %q already registered: %w", name, ErrConflict)
		}
		l.Error("register_failed", "status", 500, "reason", "cannot create user", "error", err)
		return nil, err
	}

	l.Info("user_registered", "user_id", user.ID, "cart_id", cart.ID)
	events.Emit(ctx, s.Events, events.TopicUser, "user_registered", user.ID, map[string]any{
		"name":   user.Name,
		"cartID": cart.ID,
	})
	return user, nil
}

// nameTaken catches the unique index losing a race against a concurrent register.
func (s *IdentityService) nameTaken(ctx context.Context, name string) bool {
	n, err := s.Repo.CountUsersByName(ctx, name)
	return err == nil && n > 0
}

func (s *IdentityService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return user, err
}

func (s *IdentityService) DeleteUser(ctx context.Context, actorID, id uint) error {
	l := logging.FromContext(ctx).With("svc", "identity.delete_user")

	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	if actorID != id {
		return fmt.Errorf("user %d cannot delete user %d: %w", actorID, id, ErrForbidden)
	}

	unlock := s.Locks.Lock(id)
	defer unlock()

	if err := s.Repo.DeleteUserCascade(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		l.Error("delete_user_failed", "status", 500, "error", err)
		return err
	}

	l.Info("user_deleted", "user_id", id)
	events.Emit(ctx, s.Events, events.TopicUser, "user_deleted", id, nil)
	return nil
}

func (s *IdentityService) DeleteCart(ctx context.Context, actorID, cartID uint) error {
	l := logging.FromContext(ctx).With("svc", "identity.delete_cart")

	cart, err := s.Repo.GetCartByID(ctx, cartID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cart %d: %w", cartID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if cart.UserID != actorID {
		return fmt.Errorf("user %d cannot delete cart %d: %w", actorID, cartID, ErrForbidden)
	}

	unlock := s.Locks.Lock(cart.UserID)
	defer unlock()

	if err := s.Repo.DeleteCart(ctx, cartID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("cart %d: %w", cartID, ErrNotFound)
		}
		l.Error("delete_cart_failed", "status", 500, "error", err)
		return err
	}

	l.Info("cart_deleted", "user_id", cart.UserID, "cart_id", cartID)
	events.Emit(ctx, s.Events, events.TopicCart, "cart_deleted", cart.UserID, map[string]any{"cartID": cartID})
	return nil
}

// CartOf returns the user's current cart, or ErrNotFound when it was deleted.
func (s *IdentityService) CartOf(ctx context.Context, userID uint) (*models.Cart, error) {
	cart, err := s.Repo.GetCartByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart of user %d: %w", userID, ErrNotFound)
	}
	return cart, err
}
