package repo

import (
	"context"
	"strings"

	"github.com/Skotchmaster/herb_shop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) ListHerbs(ctx context.Context) ([]models.Herb, error) {
	var herbs []models.Herb
	if err := r.DB.WithContext(ctx).Order("title ASC").Find(&herbs).Error; err != nil {
		return nil, err
	}
	return herbs, nil
}

func (r *GormRepo) HerbByTitle(ctx context.Context, title string) (*models.Herb, error) {
	var herb models.Herb
	if err := r.DB.WithContext(ctx).Where("title = ?", title).First(&herb).Error; err != nil {
		return nil, err
	}
	return &herb, nil
}

// UpsertHerb inserts the herb or re-prices it. changed is true when a row was
// created or its price moved to a new version.
func (r *GormRepo) UpsertHerb(ctx context.Context, title, description string, price int64) (*models.Herb, bool, error) {
	var (
		herb    models.Herb
		changed bool
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("title = ?", title).First(&herb).Error
		if err == gorm.ErrRecordNotFound {
			herb = models.Herb{Title: title, Description: description, Price: price, Version: 1}
			if err := tx.Create(&herb).Error; err != nil {
				return err
			}
			changed = true
			return appendPrice(tx, &herb)
		}
		if err != nil {
			return err
		}

		if description != "" && description != herb.Description {
			if err := tx.Model(&herb).Update("description", description).Error; err != nil {
				return err
			}
		}
		if herb.Price == price {
			return nil
		}
		changed = true
		return reprice(tx, &herb, price)
	})
	if err != nil {
		return nil, false, err
	}
	return &herb, changed, nil
}

// SetHerbPrice returns gorm.ErrRecordNotFound for unknown titles.
func (r *GormRepo) SetHerbPrice(ctx context.Context, title string, price int64) (*models.Herb, error) {
	var herb models.Herb
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("title = ?", title).First(&herb).Error; err != nil {
			return err
		}
		if herb.Price == price {
			return nil
		}
		return reprice(tx, &herb, price)
	})
	if err != nil {
		return nil, err
	}
	return &herb, nil
}

func (r *GormRepo) PriceHistory(ctx context.Context, title string) ([]models.HerbPrice, error) {
	var rows []models.HerbPrice
	if err := r.DB.WithContext(ctx).
		Where("title = ?", title).
		Order("version ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SearchHerbs is the SQL fallback for catalog search.
func (r *GormRepo) SearchHerbs(ctx context.Context, q string, offset, limit int) (int64, []models.Herb, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	base := r.DB.WithContext(ctx).Model(&models.Herb{}).
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var herbs []models.Herb
	if err := base.Session(&gorm.Session{}).
		Order("title ASC").
		Offset(offset).
		Limit(limit).
		Find(&herbs).Error; err != nil {
		return 0, nil, err
	}
	return total, herbs, nil
}

func reprice(tx *gorm.DB, herb *models.Herb, price int64) error {
	herb.Price = price
	herb.Version++
	if err := tx.Model(herb).Updates(map[string]any{
		"price":   herb.Price,
		"version": herb.Version,
	}).Error; err != nil {
		return err
	}
	return appendPrice(tx, herb)
}

func appendPrice(tx *gorm.DB, herb *models.Herb) error {
	return tx.Create(&models.HerbPrice{
		HerbID:  herb.ID,
		Title:   herb.Title,
		Price:   herb.Price,
		Version: herb.Version,
	}).Error
}
