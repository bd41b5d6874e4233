package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name      string    `gorm:"size:60;uniqueIndex;not null"    json:"name"`
	CreatedAt time.Time `                                       json:"created_at"`

	Carts    []Cart            `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Lines    []LineEntry       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Sessions []CheckoutSession `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

type Cart struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"index;not null"           json:"user_id"`

	Lines []LineEntry `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// LineEntry is one unit of a herb in a user's cart. Rows sharing (UserID, Title)
// carry the contiguous ordinals 1..n in Count.
type LineEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"         json:"id"`
	Title     string    `gorm:"size:80;not null;index:idx_line_user_title" json:"title"`
	Count     int       `gorm:"not null"                         json:"count"`
	Price     int64     `gorm:"not null"                         json:"price"`
	UserID    uint      `gorm:"not null;index:idx_line_user_title" json:"user_id"`
	CartID    uint      `gorm:"not null;index"                   json:"cart_id"`
	CreatedAt time.Time `                                        json:"created_at"`
}

type Herb struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	Title       string    `gorm:"size:80;uniqueIndex;not null" json:"title"`
	Description string    `gorm:"not null;default:''"          json:"description"`
	Price       int64     `gorm:"not null;check:price >= 0"    json:"price"`
	Version     int       `gorm:"not null;default:1"           json:"version"`
	UpdatedAt   time.Time `                                    json:"updated_at"`
}

// HerbPrice rows are only ever appended.
type HerbPrice struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	HerbID    uint      `gorm:"index;not null"           json:"herb_id"`
	Title     string    `gorm:"size:80;not null"         json:"title"`
	Price     int64     `gorm:"not null"                 json:"price"`
	Version   int       `gorm:"not null"                 json:"version"`
	CreatedAt time.Time `                                json:"created_at"`
}

type CheckoutStatus string

const (
	CheckoutPending   CheckoutStatus = "pending"
	CheckoutConfirmed CheckoutStatus = "confirmed"
	CheckoutFailed    CheckoutStatus = "failed"
	CheckoutCancelled CheckoutStatus = "cancelled"
)

type CheckoutSession struct {
	ID                uint           `gorm:"primaryKey;autoIncrement"      json:"id"`
	UserID            uint           `gorm:"index;not null"                json:"user_id"`
	ProviderSessionID string         `gorm:"size:255;uniqueIndex;not null" json:"provider_session_id"`
	Status            CheckoutStatus `gorm:"size:16;not null;index"        json:"status"`
	AmountCents       int64          `gorm:"not null"                      json:"amount_cents"`
	Currency          string         `gorm:"size:3;not null"               json:"currency"`
	URL               string         `gorm:"size:1024"                     json:"url"`
	Fingerprint       string         `gorm:"size:64;index"                 json:"-"` // digest of the line items
	CreatedAt         time.Time      `                                     json:"created_at"`
	UpdatedAt         time.Time      `                                     json:"updated_at"`
}

// All lists every model in migration order.
func All() []any {
	return []any{&User{}, &Cart{}, &LineEntry{}, &Herb{}, &HerbPrice{}, &CheckoutSession{}}
}
