package domain

// Review represents a coffee shop review submitted by a user. Each user holds
// at most one review per shop.
type Review struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	CoffeeShopID string `json:"coffee_shop_id"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment,omitempty"`
	Timestamp    string `json:"timestamp"`
}
