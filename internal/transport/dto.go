package transport

import (
	"github.com/Skotchmaster/herb_shop/internal/models"
	"github.com/Skotchmaster/herb_shop/internal/service"
)

type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type UserView struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	CartID uint   `json:"cart_id,omitempty"`
}

// PageView is the document every HTML-less view renders.
type PageView struct {
	Page              string              `json:"page"`
	User              *UserView           `json:"user"`
	Catalog           []models.Herb       `json:"catalog,omitempty"`
	Cart              []service.LineGroup `json:"cart"`
	Subtotal          int64               `json:"subtotal"`
	CheckoutSessionID string              `json:"checkout_session_id,omitempty"`
	CheckoutPublicKey string              `json:"checkout_public_key,omitempty"`
	CheckoutStatus    string              `json:"checkout_status,omitempty"`
	Flashes           []Flash             `json:"flashes,omitempty"`
	CSRFToken         string              `json:"csrf_token,omitempty"`
}

type CartMutationResponse struct {
	Success  string `json:"success"`
	Title    string `json:"title,omitempty"`
	Count    int    `json:"count,omitempty"`
	Price    int64  `json:"price,omitempty"`
	Subtotal int64  `json:"subtotal"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
