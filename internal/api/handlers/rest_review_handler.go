package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"carmarket/api/internal/api/middleware"
	"carmarket/api/internal/services"
)

// RestReviewHandler handles REST requests for reviews.
type RestReviewHandler struct {
	reviews services.IReviewService
}

func NewRestReviewHandler(reviews services.IReviewService) *RestReviewHandler {
	return &RestReviewHandler{reviews: reviews}
}

type submitReviewRequest struct {
	ReviewerID string `json:"reviewerId"`
	ReviewedID string `json:"reviewedId"`
	CarID      string `json:"carId"`
	RentalID   string `json:"rentalId"`
	Rating     *int   `json:"rating"`
	Comment    string `json:"comment"`
	ReviewType string `json:"reviewType"`
}

// SubmitReview handles POST /review
func (h *RestReviewHandler) SubmitReview(c *gin.Context) {
	var req submitReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	reviewerID, err1 := optionalID(req.ReviewerID)
	reviewedID, err2 := optionalID(req.ReviewedID)
	rentalID, err3 := optionalID(req.RentalID)
	carID, err4 := optionalID(req.CarID)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid id format."})
		return
	}
	var carRef *primitive.ObjectID
	if !carID.IsZero() {
		carRef = &carID
	}

	review, err := h.reviews.Submit(c.Request.Context(), middleware.Actor(c), services.NewReviewInput{
		ReviewerID: reviewerID,
		ReviewedID: reviewedID,
		CarID:      carRef,
		RentalID:   rentalID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		ReviewType: req.ReviewType,
	})
	if err != nil {
		respondError(c, err, "Failed to submit review.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review submitted successfully", "review": review})
}

// CarReviews handles GET /review/car/:carId
func (h *RestReviewHandler) CarReviews(c *gin.Context) {
	carID, ok := pathID(c, "carId")
	if !ok {
		return
	}
	reviews, err := h.reviews.CarReviews(c.Request.Context(), carID)
	if err != nil {
		respondError(c, err, "Failed to fetch reviews.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// RenterReviews handles GET /review/renter/:renterId
func (h *RestReviewHandler) RenterReviews(c *gin.Context) {
	renterID, ok := pathID(c, "renterId")
	if !ok {
		return
	}
	reviews, err := h.reviews.RenterReviews(c.Request.Context(), renterID)
	if err != nil {
		respondError(c, err, "Failed to fetch reviews.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}
