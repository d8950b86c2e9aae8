package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carmarket/api/internal/api/middleware"
	"carmarket/api/internal/services"
)

// RestRentalHandler handles REST requests for rental requests.
type RestRentalHandler struct {
	rentals services.IRentalService
}

func NewRestRentalHandler(rentals services.IRentalService) *RestRentalHandler {
	return &RestRentalHandler{rentals: rentals}
}

type createRentalRequest struct {
	RenterID   string   `json:"renterId"`
	CarID      string   `json:"carId"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	TotalPrice *float64 `json:"totalPrice"`
}

// CreateRental handles POST /rentals
func (h *RestRentalHandler) CreateRental(c *gin.Context) {
	var req createRentalRequest
	if !bindJSON(c, &req) {
		return
	}

	renterID, err1 := optionalID(req.RenterID)
	carID, err2 := optionalID(req.CarID)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid renterId or carId."})
		return
	}
	start, err1 := parseDate(req.StartDate)
	end, err2 := parseDate(req.EndDate)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid date format."})
		return
	}

	rental, err := h.rentals.Create(c.Request.Context(), middleware.Actor(c), services.NewRentalInput{
		RenterID:   renterID,
		CarID:      carID,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: req.TotalPrice,
	})
	if err != nil {
		respondError(c, err, "Failed to create rental request.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Rental request created", "rentalRequest": rental})
}

// ListRenterRentals handles GET /rentals/:id
func (h *RestRentalHandler) ListRenterRentals(c *gin.Context) {
	renterID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !middleware.Actor(c).CanActFor(renterID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "You can only view your own rentals."})
		return
	}
	rentals, err := h.rentals.ListByRenter(c.Request.Context(), renterID)
	if err != nil {
		respondError(c, err, "Failed to fetch rentals.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rentals": rentals})
}

// ListReceivedRentals handles GET /rentals/received/:ownerId
func (h *RestRentalHandler) ListReceivedRentals(c *gin.Context) {
	ownerID, ok := pathID(c, "ownerId")
	if !ok {
		return
	}
	if !middleware.Actor(c).CanActFor(ownerID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "You can only view requests for your own cars."})
		return
	}
	rentals, err := h.rentals.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err, "Failed to fetch rentals.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rentals": rentals})
}

type updateRentalStatusRequest struct {
	Status string `json:"status"`
}

// UpdateRentalStatus handles PUT /rentals/:id
func (h *RestRentalHandler) UpdateRentalStatus(c *gin.Context) {
	rentalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateRentalStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.rentals.UpdateStatus(c.Request.Context(), middleware.Actor(c), rentalID, req.Status)
	if err != nil {
		respondError(c, err, "Failed to update rental status.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rental status updated", "updatedRental": updated})
}

// DeleteRental handles DELETE /rentals/:id
func (h *RestRentalHandler) DeleteRental(c *gin.Context) {
	rentalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rentals.Delete(c.Request.Context(), middleware.Actor(c), rentalID); err != nil {
		respondError(c, err, "Failed to delete rental request.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rental request deleted"})
}
