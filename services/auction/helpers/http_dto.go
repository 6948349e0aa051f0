package helpers

import "time"

// Request/Response DTOs
type CreateSiteRequest struct {
	Name                     string  `json:"name" binding:"required"`
	Timezone                 int     `json:"timezone"`
	SessionExpirationSeconds int     `json:"session_expiration_seconds"`
	MinimumBidIncrement      float64 `json:"minimum_bid_increment"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	SessionID  string `json:"session_id"`
	ValidUntil string `json:"valid_until"`
}

type CreateAuctionRequest struct {
	Description   string    `json:"description" binding:"required"`
	EndsOn        time.Time `json:"ends_on" binding:"required"`
	StartingPrice float64   `json:"starting_price" binding:"required,gt=0"`
}

type AuctionResponse struct {
	AuctionID     string  `json:"auction_id"`
	Site          string  `json:"site"`
	Seller        string  `json:"seller"`
	CurrentPrice  float64 `json:"current_price"`
	Description   string  `json:"description"`
	EndsOn        string  `json:"ends_on"`
	CurrentWinner string  `json:"current_winner,omitempty"`
}

type PlaceBidRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	Offer     float64 `json:"offer"`
}

type BidResponse struct {
	Accepted bool `json:"accepted"`
}

type PriceResponse struct {
	CurrentPrice float64 `json:"current_price"`
}

type WinnerResponse struct {
	CurrentWinner string `json:"current_winner,omitempty"`
}
