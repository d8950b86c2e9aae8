package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"carmarket/api/internal/api/middleware"
	"carmarket/api/internal/services"
	"carmarket/api/internal/storage"
)

// ImageQueue schedules background processing of uploaded car images.
type ImageQueue interface {
	EnqueueImageProcess(ctx context.Context, carID primitive.ObjectID, key string) error
}

// RestCarHandler handles car listings and their images.
type RestCarHandler struct {
	cars    services.ICarService
	storage storage.IS3Storage
	images  ImageQueue
}

// NewRestCarHandler creates a car handler. store may be nil when S3 is not
// configured, in which case the image endpoints answer 503.
func NewRestCarHandler(cars services.ICarService, store storage.IS3Storage, images ImageQueue) *RestCarHandler {
	return &RestCarHandler{cars: cars, storage: store, images: images}
}

type createCarRequest struct {
	OwnerID     string   `json:"ownerId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Price       *float64 `json:"price"`
	PricePerDay *float64 `json:"pricePerDay"`
	Images      []string `json:"images"`
	IsForSale   bool     `json:"isForSale"`
	IsForRent   bool     `json:"isForRent"`
}

// CreateCar handles POST /cars
func (h *RestCarHandler) CreateCar(c *gin.Context) {
	var req createCarRequest
	if !bindJSON(c, &req) {
		return
	}
	ownerID, err := optionalID(req.OwnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ownerId."})
		return
	}
	car, err := h.cars.Create(c.Request.Context(), middleware.Actor(c), services.NewCarInput{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Price:       req.Price,
		PricePerDay: req.PricePerDay,
		Images:      req.Images,
		IsForSale:   req.IsForSale,
		IsForRent:   req.IsForRent,
	})
	if err != nil {
		respondError(c, err, "Failed to list car.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Car listed successfully", "car": car})
}

// ListCars handles GET /cars
func (h *RestCarHandler) ListCars(c *gin.Context) {
	cars, err := h.cars.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch cars.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cars": cars})
}

// GetCar handles GET /cars/:id
func (h *RestCarHandler) GetCar(c *gin.Context) {
	carID, ok := pathID(c, "id")
	if !ok {
		return
	}
	car, err := h.cars.FindByID(c.Request.Context(), carID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Car not found"})
			return
		}
		respondError(c, err, "Failed to fetch car.")
		return
	}
	c.JSON(http.StatusOK, car)
}

type updateCarRequest struct {
	OwnerID      *string  `json:"ownerId"`
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Location     *string  `json:"location"`
	Price        *float64 `json:"price"`
	PricePerDay  *float64 `json:"pricePerDay"`
	Images       []string `json:"images"`
	Availability *bool    `json:"availability"`
	IsForSale    *bool    `json:"isForSale"`
	IsForRent    *bool    `json:"isForRent"`
}

// UpdateCar handles PUT /cars/:id
func (h *RestCarHandler) UpdateCar(c *gin.Context) {
	carID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateCarRequest
	if !bindJSON(c, &req) {
		return
	}
	upd := services.CarUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		Price:        req.Price,
		PricePerDay:  req.PricePerDay,
		Images:       req.Images,
		Availability: req.Availability,
		IsForSale:    req.IsForSale,
		IsForRent:    req.IsForRent,
	}
	if req.OwnerID != nil {
		ownerID, err := primitive.ObjectIDFromHex(*req.OwnerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid ownerId."})
			return
		}
		upd.OwnerID = &ownerID
	}
	car, err := h.cars.Update(c.Request.Context(), middleware.Actor(c), carID, upd)
	if err != nil {
		respondError(c, err, "Failed to update car.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Car updated successfully", "car": car})
}

// DeleteCar handles DELETE /cars/:id
func (h *RestCarHandler) DeleteCar(c *gin.Context) {
	carID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.cars.Delete(c.Request.Context(), middleware.Actor(c), carID); err != nil {
		respondError(c, err, "Failed to delete car.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Car deleted successfully"})
}

// ListRentalCars handles GET /rentals
func (h *RestCarHandler) ListRentalCars(c *gin.Context) {
	cars, err := h.cars.ListForRent(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch rental cars.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cars": cars})
}

// ListRentalCarsByOwner handles GET /cars/rental-by-owner/:id
func (h *RestCarHandler) ListRentalCarsByOwner(c *gin.Context) {
	ownerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	cars, err := h.cars.ListRentalByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err, "Failed to fetch rental cars.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cars": cars})
}

type availabilityRequest struct {
	Availability *bool `json:"availability" binding:"required"`
}

// UpdateAvailability handles PUT /cars/update-availability/:id
func (h *RestCarHandler) UpdateAvailability(c *gin.Context) {
	carID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req availabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	car, err := h.cars.UpdateAvailability(c.Request.Context(), middleware.Actor(c), carID, *req.Availability)
	if err != nil {
		respondError(c, err, "Failed to update availability.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Availability updated", "car": car})
}

// ownedCar loads the car and checks the caller may edit it.
func (h *RestCarHandler) ownedCar(c *gin.Context) (primitive.ObjectID, string, bool) {
	carID, ok := pathID(c, "id")
	if !ok {
		return primitive.NilObjectID, "", false
	}
	car, err := h.cars.FindByID(c.Request.Context(), carID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Car not found"})
			return primitive.NilObjectID, "", false
		}
		respondError(c, err, "Failed to fetch car.")
		return primitive.NilObjectID, "", false
	}
	if !middleware.Actor(c).CanActFor(car.OwnerID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Only the owner can manage this car's images."})
		return primitive.NilObjectID, "", false
	}
	return carID, car.OwnerID.Hex(), true
}

type uploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// ImageUploadURL handles POST /cars/:id/images/upload-url
func (h *RestCarHandler) ImageUploadURL(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Image uploads are not configured."})
		return
	}
	carID, ownerHex, ok := h.ownedCar(c)
	if !ok {
		return
	}
	var req uploadURLRequest
	if !bindJSON(c, &req) {
		return
	}
	url, key, err := h.storage.GeneratePresignedPutURL(c.Request.Context(), ownerHex, carID.Hex(), req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err, "Failed to generate upload URL.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploadUrl": url, "key": key})
}

type addImageRequest struct {
	Key string `json:"key" binding:"required"`
}

// AddImage handles POST /cars/:id/images. The image is processed and
// attached to the car in the background.
func (h *RestCarHandler) AddImage(c *gin.Context) {
	if h.storage == nil || h.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Image uploads are not configured."})
		return
	}
	carID, ownerHex, ok := h.ownedCar(c)
	if !ok {
		return
	}
	var req addImageRequest
	if !bindJSON(c, &req) {
		return
	}
	if !storage.IsImageKeyFor(req.Key, ownerHex, carID.Hex()) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Image key does not belong to this car."})
		return
	}
	if err := h.images.EnqueueImageProcess(c.Request.Context(), carID, req.Key); err != nil {
		respondError(c, err, "Failed to queue image processing.")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Image queued for processing", "key": req.Key})
}
