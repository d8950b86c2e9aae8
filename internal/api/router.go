package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"carmarket/api/internal/api/handlers"
	"carmarket/api/internal/api/middleware"
	"carmarket/api/internal/config"
	"carmarket/api/internal/email"
	"carmarket/api/internal/services"
	"carmarket/api/internal/storage"
)

// Services bundles what the API handlers depend on. Storage and Images may
// be nil when S3 is not configured.
type Services struct {
	Users    services.IUserService
	Brands   services.IBrandService
	Cars     services.ICarService
	UsedCars services.IUsedCarService
	Rentals  services.IRentalService
	Reviews  services.IReviewService
	Storage  storage.IS3Storage
	Images   handlers.ImageQueue
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	// CORS first so preflights are answered before rate limiting.
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	userHandler := handlers.NewRestUserHandler(svc.Users, svc.Brands, cfg)
	brandHandler := handlers.NewRestBrandHandler(svc.Brands, cfg)
	carHandler := handlers.NewRestCarHandler(svc.Cars, svc.Storage, svc.Images)
	usedCarHandler := handlers.NewRestUsedCarHandler(svc.UsedCars)
	rentalHandler := handlers.NewRestRentalHandler(svc.Rentals)
	reviewHandler := handlers.NewRestReviewHandler(svc.Reviews)

	requireAuth := middleware.AuthMiddleware(cfg.JwtSecret, cfg.CookieName)
	requireAdmin := middleware.AdminMiddleware()

	v := r.Group("/api")
	{
		v.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Public routes
		v.POST("/users/auth/signup", userHandler.Signup)
		v.POST("/users/auth/login", userHandler.Login)
		v.POST("/users/auth/logout", userHandler.Logout)
		v.POST("/brands/auth/signup", brandHandler.Signup)
		v.POST("/brands/auth/login", brandHandler.Login)
		v.GET("/brands/catalog", brandHandler.Catalog)

		v.GET("/cars", carHandler.ListCars)
		v.GET("/cars/:id", carHandler.GetCar)
		v.GET("/cars/rental-by-owner/:id", carHandler.ListRentalCarsByOwner)
		v.GET("/rentals", carHandler.ListRentalCars)
		v.GET("/ads", usedCarHandler.ListAds)
		v.GET("/review/car/:carId", reviewHandler.CarReviews)
		v.GET("/review/renter/:renterId", reviewHandler.RenterReviews)

		authRequired := v.Group("/")
		authRequired.Use(requireAuth)
		{
			authRequired.GET("/users/auth/me", userHandler.Me)
			authRequired.DELETE("/users/:id", userHandler.DeleteUser)

			authRequired.PUT("/brands/:id", brandHandler.UpdateBrand)
			authRequired.DELETE("/brands/:id", brandHandler.DeleteBrand)

			authRequired.POST("/cars", carHandler.CreateCar)
			authRequired.PUT("/cars/:id", carHandler.UpdateCar)
			authRequired.DELETE("/cars/:id", carHandler.DeleteCar)
			authRequired.PUT("/cars/update-availability/:id", carHandler.UpdateAvailability)
			authRequired.POST("/cars/:id/images/upload-url", carHandler.ImageUploadURL)
			authRequired.POST("/cars/:id/images", carHandler.AddImage)

			authRequired.POST("/ads", usedCarHandler.CreateAd)

			authRequired.POST("/rentals", rentalHandler.CreateRental)
			authRequired.GET("/rentals/:id", rentalHandler.ListRenterRentals)
			authRequired.GET("/rentals/received/:ownerId", rentalHandler.ListReceivedRentals)
			authRequired.PUT("/rentals/:id", rentalHandler.UpdateRentalStatus)
			authRequired.DELETE("/rentals/:id", rentalHandler.DeleteRental)

			authRequired.POST("/review", reviewHandler.SubmitReview)
		}

		adminRequired := v.Group("/")
		adminRequired.Use(requireAuth, requireAdmin)
		{
			adminRequired.GET("/users", userHandler.ListUsers)
			adminRequired.GET("/brands", brandHandler.ListBrands)
			adminRequired.PUT("/brands/:id/verify", brandHandler.VerifyBrand)
		}
	}

	return r
}

// SetupServiceRouter configures the internal service API. mail may be nil
// when mock email capture is disabled.
func SetupServiceRouter(mail *email.RedisSender, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled.")
			}
		case "getTestEmail":
			if mail == nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Mock email capture is disabled"})
				return
			}
			var args []string // [topic, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [topic, email]"})
				return
			}
			topic, to := args[0], args[1]

			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			// Notifications are sent by the worker, so poll briefly.
			for i := 0; i < 10; i++ {
				found, err := mail.Fetch(ctx, to, topic)
				if err == nil {
					c.JSON(http.StatusOK, gin.H{"success": true, "data": found})
					return
				}
				if !errors.Is(err, redis.Nil) {
					log.Printf("Service API: error fetching test email for %s/%s: %v", to, topic, err)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for %s (%s)", to, topic)})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
