package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/herb_shop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) CreateCheckoutSession(ctx context.Context, s *models.CheckoutSession) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *GormRepo) CheckoutByProviderID(ctx context.Context, providerSessionID string) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	if err := r.DB.WithContext(ctx).Where("provider_session_id = ?", providerSessionID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// OpenCheckout returns the newest pending session of the user opened for the
// same line items after since.
func (r *GormRepo) OpenCheckout(ctx context.Context, userID uint, fingerprint string, since time.Time) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status = ? AND fingerprint = ? AND created_at >= ?", userID, models.CheckoutPending, fingerprint, since).
		Order("id DESC").
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// TransitionCheckout moves a pending session to status. Sessions already out of
// pending are returned untouched with changed == false. Confirming deletes the
// owner's line entries in the same transaction.
func (r *GormRepo) TransitionCheckout(ctx context.Context, providerSessionID string, status models.CheckoutStatus) (*models.CheckoutSession, bool, error) {
	var (
		s       models.CheckoutSession
		changed bool
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("provider_session_id = ?", providerSessionID).
			First(&s).Error; err != nil {
			return err
		}
		if s.Status != models.CheckoutPending {
			return nil
		}

		if err := tx.Model(&s).Update("status", status).Error; err != nil {
			return err
		}
		s.Status = status
		changed = true

		if status == models.CheckoutConfirmed {
			return tx.Where("user_id = ?", s.UserID).Delete(&models.LineEntry{}).Error
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &s, changed, nil
}
