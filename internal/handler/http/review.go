package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/service"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/httputil"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// ReviewRequest is the JSON request body for creating or replacing a review.
// The shop is addressed by display name.
type ReviewRequest struct {
	CoffeeShop string `json:"coffeeshop" validate:"required,min=1,max=255"`
	Rating     int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment    string `json:"comment" validate:"max=100"`
}

// ReviewPayload is the review as rendered in mutation responses, carrying the
// shop's display name instead of its internal ID.
type ReviewPayload struct {
	ID         string `json:"id"`
	CoffeeShop string `json:"coffeeshop"`
	UserID     string `json:"user_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// AggregatePayload is the shop's post-write rating summary. Rating is null
// when the mutation removed the shop's last review.
type AggregatePayload struct {
	CoffeeShopID string   `json:"coffee_shop_id"`
	Rating       *float64 `json:"aggregated_rating"`
	TotalReviews int      `json:"total_reviews"`
}

// ReviewMutationResponse pairs the written review with the aggregate it
// produced.
type ReviewMutationResponse struct {
	Review    ReviewPayload    `json:"review"`
	Aggregate AggregatePayload `json:"aggregated rating"`
}

// DeleteReviewResponse reports a successful deletion together with the
// surviving aggregate, if any.
type DeleteReviewResponse struct {
	Message   string           `json:"message"`
	Aggregate AggregatePayload `json:"aggregated rating"`
}

func mutationResponse(receipt *service.ReviewReceipt) ReviewMutationResponse {
	return ReviewMutationResponse{
		Review: ReviewPayload{
			ID:         receipt.Review.ID,
			CoffeeShop: receipt.ShopName,
			UserID:     receipt.Review.UserID,
			Rating:     receipt.Review.Rating,
			Comment:    receipt.Review.Comment,
			Timestamp:  receipt.Review.Timestamp,
		},
		Aggregate: aggregatePayload(receipt),
	}
}

func aggregatePayload(receipt *service.ReviewReceipt) AggregatePayload {
	p := AggregatePayload{CoffeeShopID: receipt.Review.CoffeeShopID}
	if receipt.AggregateKept {
		rating := receipt.Aggregate.Rating
		p.Rating = &rating
		p.TotalReviews = receipt.Aggregate.Count
	}
	return p
}

// ListByShop handles GET /reviews/{shopName}. A shop with no reviews yields
// an empty 204; an unknown shop is a 404.
func (h *ReviewHandler) ListByShop(w http.ResponseWriter, r *http.Request) {
	shopName := pathParam(r, "shopName")

	reviews, err := h.service.ListByShop(r.Context(), shopName)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if len(reviews) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reviews})
}

// Create handles POST /reviews/
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeReviewRequest(w, r)
	if !ok {
		return
	}

	receipt, err := h.service.Create(r.Context(), identityFromRequest(r), service.ReviewInput{
		CoffeeShop: req.CoffeeShop,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: mutationResponse(receipt)})
}

// Update handles PUT /reviews/
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeReviewRequest(w, r)
	if !ok {
		return
	}

	receipt, err := h.service.Update(r.Context(), identityFromRequest(r), service.ReviewInput{
		CoffeeShop: req.CoffeeShop,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: mutationResponse(receipt)})
}

// Delete handles DELETE /reviews/{shopName}. It removes the caller's own
// review for the named shop.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	shopName := pathParam(r, "shopName")

	receipt, err := h.service.Delete(r.Context(), identityFromRequest(r), shopName)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: DeleteReviewResponse{
		Message:   "Successfully deleted review",
		Aggregate: aggregatePayload(receipt),
	}})
}

func (h *ReviewHandler) decodeReviewRequest(w http.ResponseWriter, r *http.Request) (ReviewRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return ReviewRequest{}, false
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return ReviewRequest{}, false
	}

	return req, true
}
