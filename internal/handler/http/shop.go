package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/domain"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/service"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/httputil"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/validator"
)

// ShopHandler handles HTTP requests for the coffee shop directory.
type ShopHandler struct {
	service *service.ShopService
	logger  *slog.Logger
}

// NewShopHandler creates a new shop HTTP handler.
func NewShopHandler(svc *service.ShopService, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{service: svc, logger: logger}
}

// CreateShopRequest is the JSON request body for listing a new coffee shop.
// The ordinal attributes encode low/medium/high as 1/2/3.
type CreateShopRequest struct {
	Name                string `json:"name" validate:"required,min=1,max=255"`
	Address             string `json:"address" validate:"required,min=1,max=255"`
	WifiQuality         int    `json:"wifi_quality" validate:"required,gte=1,lte=3"`
	HasAC               bool   `json:"has_ac"`
	LaptopFriendlySeats int    `json:"laptop_friendly_seats" validate:"required,gte=1,lte=3"`
	DogFriendly         bool   `json:"dog_friendly"`
	NoiseLevel          int    `json:"noise_level" validate:"required,gte=1,lte=3"`
	OutletAvailability  int    `json:"outlet_availability" validate:"required,gte=1,lte=3"`
}

// List handles GET /coffee-shops/. Filters arrive as query parameters; an
// empty result is reported as 204 with no body.
func (h *ShopHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseShopFilter(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: err.Error()},
		})
		return
	}

	shops, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if len(shops) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shops})
}

// ListAll handles GET /coffee-shops/all.
func (h *ShopHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	shops, err := h.service.ListAll(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if len(shops) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shops})
}

// Create handles POST /coffee-shops/
func (h *ShopHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req CreateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	shop, err := h.service.Create(r.Context(), identityFromRequest(r), service.CreateShopInput{
		Name:                req.Name,
		Address:             req.Address,
		WifiQuality:         req.WifiQuality,
		HasAC:               req.HasAC,
		LaptopFriendlySeats: req.LaptopFriendlySeats,
		DogFriendly:         req.DogFriendly,
		NoiseLevel:          req.NoiseLevel,
		OutletAvailability:  req.OutletAvailability,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: shop})
}

// Delete handles DELETE /coffee-shops/{name}. The shop is addressed by its
// display name; lookup is case- and whitespace-insensitive.
func (h *ShopHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	if err := h.service.Delete(r.Context(), identityFromRequest(r), name); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Coffee shop and its related data deleted successfully")
}

// parseShopFilter reads the optional listing predicates from query parameters.
func parseShopFilter(r *http.Request) (domain.ShopFilter, error) {
	var filter domain.ShopFilter
	q := r.URL.Query()

	if v := q.Get("wifi_quality"); v != "" {
		n, err := parseOrdinal("wifi_quality", v)
		if err != nil {
			return domain.ShopFilter{}, err
		}
		filter.WifiQuality = &n
	}
	if v := q.Get("laptop_friendly_seats"); v != "" {
		n, err := parseOrdinal("laptop_friendly_seats", v)
		if err != nil {
			return domain.ShopFilter{}, err
		}
		filter.LaptopFriendlySeats = &n
	}
	if v := q.Get("noise_level"); v != "" {
		n, err := parseOrdinal("noise_level", v)
		if err != nil {
			return domain.ShopFilter{}, err
		}
		filter.NoiseLevel = &n
	}
	if v := q.Get("outlet_availability"); v != "" {
		n, err := parseOrdinal("outlet_availability", v)
		if err != nil {
			return domain.ShopFilter{}, err
		}
		filter.OutletAvailability = &n
	}
	if v := q.Get("has_ac"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.ShopFilter{}, &paramError{"has_ac must be a boolean"}
		}
		filter.HasAC = &b
	}
	if v := q.Get("dog_friendly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return domain.ShopFilter{}, &paramError{"dog_friendly must be a boolean"}
		}
		filter.DogFriendly = &b
	}
	if v := q.Get("min_rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 1 || f > 5 {
			return domain.ShopFilter{}, &paramError{"min_rating must be a number between 1 and 5"}
		}
		filter.MinRating = &f
	}

	return filter, nil
}

func parseOrdinal(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 3 {
		return 0, &paramError{name + " must be an integer between 1 and 3"}
	}
	return n, nil
}

type paramError struct {
	msg string
}

func (e *paramError) Error() string {
	return e.msg
}
