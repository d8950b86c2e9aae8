package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carmarket/api/internal/models"
	"carmarket/api/internal/services"
)

type RestUsedCarHandler struct {
	ads services.IUsedCarService
}

func NewRestUsedCarHandler(ads services.IUsedCarService) *RestUsedCarHandler {
	return &RestUsedCarHandler{ads: ads}
}

type usedCarRequest struct {
	Name           string   `json:"name"`
	Images         []string `json:"images"`
	Price          string   `json:"price"`
	Mileage        string   `json:"mileage"`
	ModelYear      int      `json:"modelYear"`
	City           string   `json:"city"`
	SellerName     string   `json:"sellerName"`
	SellerPhone    string   `json:"sellerPhone"`
	SellerComments string   `json:"sellerComments"`
}

// CreateAd handles POST /ads
func (h *RestUsedCarHandler) CreateAd(c *gin.Context) {
	var req usedCarRequest
	if !bindJSON(c, &req) {
		return
	}
	ad, err := h.ads.Create(c.Request.Context(), models.UsedCarAd{
		Name:           req.Name,
		Images:         req.Images,
		Price:          req.Price,
		Mileage:        req.Mileage,
		ModelYear:      req.ModelYear,
		City:           req.City,
		SellerName:     req.SellerName,
		SellerPhone:    req.SellerPhone,
		SellerComments: req.SellerComments,
	})
	if err != nil {
		respondError(c, err, "Failed to post ad.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Ad posted successfully", "ad": ad})
}

// ListAds handles GET /ads
func (h *RestUsedCarHandler) ListAds(c *gin.Context) {
	ads, err := h.ads.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch ads.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ads": ads})
}
