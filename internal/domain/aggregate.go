package domain

import "math"

// RatingAggregate is the running mean and count of ratings for one shop.
// The zero value (Count == 0) means the shop has no reviews yet.
type RatingAggregate struct {
	CoffeeShopID string  `json:"coffee_shop_id"`
	Rating       float64 `json:"aggregated_rating"`
	Count        int     `json:"total_reviews"`
}

// round3 rounds to three decimal places, half away from zero.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// FirstRating returns the aggregate for a shop's first review.
func FirstRating(shopID string, rating int) RatingAggregate {
	return RatingAggregate{CoffeeShopID: shopID, Rating: float64(rating), Count: 1}
}

// Add folds a new rating into the aggregate and bumps the count.
func (a RatingAggregate) Add(rating int) RatingAggregate {
	total := a.Rating*float64(a.Count) + float64(rating)
	return RatingAggregate{
		CoffeeShopID: a.CoffeeShopID,
		Rating:       round3(total / float64(a.Count+1)),
		Count:        a.Count + 1,
	}
}

// Replace swaps one constituent rating for another. The count is unchanged.
func (a RatingAggregate) Replace(oldRating, newRating int) RatingAggregate {
	total := a.Rating*float64(a.Count) - float64(oldRating) + float64(newRating)
	return RatingAggregate{
		CoffeeShopID: a.CoffeeShopID,
		Rating:       round3(total / float64(a.Count)),
		Count:        a.Count,
	}
}

// Remove drops one constituent rating. When the last rating is removed the
// second return value is false, signaling the aggregate row must be deleted
// rather than updated.
func (a RatingAggregate) Remove(rating int) (RatingAggregate, bool) {
	if a.Count <= 1 {
		return RatingAggregate{CoffeeShopID: a.CoffeeShopID}, false
	}
	total := a.Rating*float64(a.Count) - float64(rating)
	return RatingAggregate{
		CoffeeShopID: a.CoffeeShopID,
		Rating:       round3(total / float64(a.Count-1)),
		Count:        a.Count - 1,
	}, true
}
