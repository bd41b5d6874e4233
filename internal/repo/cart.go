package repo

import (
	"context"

	"github.com/Skotchmaster/herb_shop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withUserCart runs fn in a transaction holding a row lock on the user's cart.
// A missing cart is recreated; a missing user yields gorm.ErrRecordNotFound.
func (r *GormRepo) withUserCart(ctx context.Context, userID uint, fn func(tx *gorm.DB, cart *models.Cart) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		var cart models.Cart
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Order("id ASC").
			First(&cart).Error
		if err == gorm.ErrRecordNotFound {
			cart = models.Cart{UserID: userID}
			if err := tx.Create(&cart).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		return fn(tx, &cart)
	})
}

func (r *GormRepo) AddLine(ctx context.Context, userID uint, title string, price int64) (*models.LineEntry, error) {
	var line models.LineEntry
	err := r.withUserCart(ctx, userID, func(tx *gorm.DB, cart *models.Cart) error {
		var existing int64
		if err := tx.Model(&models.LineEntry{}).
			Where("user_id = ? AND title = ?", userID, title).
			Count(&existing).Error; err != nil {
			return err
		}

		line = models.LineEntry{
			Title:  title,
			Count:  int(existing) + 1,
			Price:  price,
			UserID: userID,
			CartID: cart.ID,
		}
		return tx.Create(&line).Error
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// RemoveLines deletes every line with the title and reports how many went away.
func (r *GormRepo) RemoveLines(ctx context.Context, userID uint, title string) (int64, error) {
	var deleted int64
	err := r.withUserCart(ctx, userID, func(tx *gorm.DB, _ *models.Cart) error {
		res := tx.Where("user_id = ? AND title = ?", userID, title).Delete(&models.LineEntry{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

// DecrementLine deletes the highest ordinal for the title. It reports false when
// there was nothing to delete.
func (r *GormRepo) DecrementLine(ctx context.Context, userID uint, title string) (bool, error) {
	deleted := false
	err := r.withUserCart(ctx, userID, func(tx *gorm.DB, _ *models.Cart) error {
		var top models.LineEntry
		err := tx.Where("user_id = ? AND title = ?", userID, title).
			Order("count DESC, id DESC").
			First(&top).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&top).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (r *GormRepo) ListLines(ctx context.Context, userID uint) ([]models.LineEntry, error) {
	var lines []models.LineEntry
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *GormRepo) LinesByTitle(ctx context.Context, userID uint, title string) ([]models.LineEntry, error) {
	var lines []models.LineEntry
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND title = ?", userID, title).
		Order("count ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Subtotal sums line prices. An unknown user yields gorm.ErrRecordNotFound.
func (r *GormRepo) Subtotal(ctx context.Context, userID uint) (int64, error) {
	if _, err := r.GetUserByID(ctx, userID); err != nil {
		return 0, err
	}

	var total struct{ Sum int64 }
	if err := r.DB.WithContext(ctx).
		Model(&models.LineEntry{}).
		Select("COALESCE(SUM(price), 0) AS sum").
		Where("user_id = ?", userID).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total.Sum, nil
}
