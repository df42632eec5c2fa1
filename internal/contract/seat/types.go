package seat

import (
	"github.com/kirinyoku/seat-market/internal/contract/module/token"
	"github.com/kirinyoku/seat-market/internal/domain"
)

type Metadata struct {
	Name           string        `json:"name"`
	ImageURI       string        `json:"image_uri"`
	Description    string        `json:"description"`
	Benefits       []Benefit     `json:"benefits"`
	TemplateNumber uint8         `json:"template_number"`
	ImageSettings  ImageSettings `json:"image_settings"`
}

type Benefit struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type ImageSettings struct {
	SeatName bool `json:"seat_name"`
	HubName  bool `json:"hub_name"`
}

// TokenMetadata is the per-seat token extension.
type TokenMetadata struct {
	Description *string `json:"description,omitempty"`
	Name        *string `json:"name,omitempty"`
	// RoyaltyPercentage is the minter's cut of resales.
	RoyaltyPercentage     *uint64 `json:"royalty_percentage,omitempty"`
	RoyaltyPaymentAddress *string `json:"royalty_payment_address,omitempty"`
}

// Info is one row of the all_seats query.
type Info struct {
	TokenID     string           `json:"token_id"`
	ListedPrice domain.Coins     `json:"listed_price,omitempty"`
	Redeemed    bool             `json:"redeemed"`
	Owner       domain.Addr      `json:"owner"`
	Approvals   []token.Approval `json:"approvals"`
	TokenURI    *string          `json:"token_uri,omitempty"`
	Extension   TokenMetadata    `json:"extension"`
}
