package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carmarket/api/internal/api/middleware"
	"carmarket/api/internal/auth"
	"carmarket/api/internal/config"
	"carmarket/api/internal/models"
	"carmarket/api/internal/services"
)

// RestBrandHandler handles brand accounts and the new-car catalog.
type RestBrandHandler struct {
	brands services.IBrandService
	cfg    *config.Config
}

func NewRestBrandHandler(brands services.IBrandService, cfg *config.Config) *RestBrandHandler {
	return &RestBrandHandler{brands: brands, cfg: cfg}
}

type brandSignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Logo     string `json:"logo"`
	Password string `json:"password"`
}

// Signup handles POST /brands/auth/signup
func (h *RestBrandHandler) Signup(c *gin.Context) {
	var req brandSignupRequest
	if !bindJSON(c, &req) {
		return
	}
	brand, err := h.brands.Signup(c.Request.Context(), req.Name, req.Email, req.Logo, req.Password)
	if err != nil {
		respondError(c, err, "An error occurred during signup.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Brand created successfully.", "brand": brand})
}

// Login handles POST /brands/auth/login
func (h *RestBrandHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	brand, err := h.brands.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "An error occurred during login.")
		return
	}
	token, ok := setSession(c, h.cfg, brand.ID.Hex(), auth.KindBrand, brand.Email, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful.", "brand": brand, "token": token})
}

// ListBrands handles GET /brands (admin)
func (h *RestBrandHandler) ListBrands(c *gin.Context) {
	brands, err := h.brands.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "An error occurred.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands})
}

// Catalog handles GET /brands/catalog
func (h *RestBrandHandler) Catalog(c *gin.Context) {
	brands, err := h.brands.Catalog(c.Request.Context())
	if err != nil {
		respondError(c, err, "An error occurred.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands})
}

type updateBrandRequest struct {
	Name     *string         `json:"name"`
	Email    *string         `json:"email"`
	Logo     *string         `json:"logo"`
	Password *string         `json:"password"`
	Cars     []models.NewCar `json:"cars" binding:"omitempty,dive"`
}

// UpdateBrand handles PUT /brands/:id
func (h *RestBrandHandler) UpdateBrand(c *gin.Context) {
	brandID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateBrandRequest
	if !bindJSON(c, &req) {
		return
	}
	brand, err := h.brands.Update(c.Request.Context(), middleware.Actor(c), brandID, services.BrandUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Logo:     req.Logo,
		Password: req.Password,
		Cars:     req.Cars,
	})
	if err != nil {
		respondError(c, err, "An error occurred while updating the brand.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Brand updated successfully.", "brand": brand})
}

type verifyBrandRequest struct {
	IsVerified *bool `json:"isVerified" binding:"required"`
}

// VerifyBrand handles PUT /brands/:id/verify (admin)
func (h *RestBrandHandler) VerifyBrand(c *gin.Context) {
	brandID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req verifyBrandRequest
	if !bindJSON(c, &req) {
		return
	}
	brand, err := h.brands.SetVerified(c.Request.Context(), brandID, *req.IsVerified)
	if err != nil {
		respondError(c, err, "An error occurred.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Brand verification updated.", "brand": brand})
}

// DeleteBrand handles DELETE /brands/:id
func (h *RestBrandHandler) DeleteBrand(c *gin.Context) {
	brandID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.brands.Delete(c.Request.Context(), middleware.Actor(c), brandID); err != nil {
		respondError(c, err, "An error occurred.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Brand deleted successfully."})
}
