package handlers_test

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"carmarket/api/internal/api/middleware"
	"carmarket/api/internal/models"
	"carmarket/api/internal/services"
)

// --- Mocks ---

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Signup(ctx context.Context, name, email, phoneNumber, password string) (*models.User, error) {
	args := m.Called(ctx, name, email, phoneNumber, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) Exists(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
func (m *MockUserService) ListNonAdmin(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}
func (m *MockUserService) Delete(ctx context.Context, actor services.Actor, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, actor, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockBrandService struct {
	mock.Mock
}

func (m *MockBrandService) Signup(ctx context.Context, name, email, logo, password string) (*models.Brand, error) {
	args := m.Called(ctx, name, email, logo, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Brand), args.Error(1)
}
func (m *MockBrandService) Login(ctx context.Context, email, password string) (*models.Brand, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Brand), args.Error(1)
}
func (m *MockBrandService) FindByID(ctx context.Context, brandID primitive.ObjectID) (*models.Brand, error) {
	args := m.Called(ctx, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Brand), args.Error(1)
}
func (m *MockBrandService) List(ctx context.Context) ([]models.Brand, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Brand), args.Error(1)
}
func (m *MockBrandService) Update(ctx context.Context, actor services.Actor, brandID primitive.ObjectID, upd services.BrandUpdate) (*models.Brand, error) {
	args := m.Called(ctx, actor, brandID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Brand), args.Error(1)
}
func (m *MockBrandService) SetVerified(ctx context.Context, brandID primitive.ObjectID, verified bool) (*models.Brand, error) {
	args := m.Called(ctx, brandID, verified)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Brand), args.Error(1)
}
func (m *MockBrandService) Delete(ctx context.Context, actor services.Actor, brandID primitive.ObjectID) error {
	args := m.Called(ctx, actor, brandID)
	return args.Error(0)
}
func (m *MockBrandService) Catalog(ctx context.Context) ([]models.Brand, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Brand), args.Error(1)
}

type MockCarService struct {
	mock.Mock
}

func (m *MockCarService) Create(ctx context.Context, actor services.Actor, in services.NewCarInput) (*models.Car, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}
func (m *MockCarService) List(ctx context.Context) ([]models.Car, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Car), args.Error(1)
}
func (m *MockCarService) FindByID(ctx context.Context, carID primitive.ObjectID) (*models.Car, error) {
	args := m.Called(ctx, carID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}
func (m *MockCarService) Update(ctx context.Context, actor services.Actor, carID primitive.ObjectID, upd services.CarUpdate) (*models.Car, error) {
	args := m.Called(ctx, actor, carID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}
func (m *MockCarService) Delete(ctx context.Context, actor services.Actor, carID primitive.ObjectID) error {
	args := m.Called(ctx, actor, carID)
	return args.Error(0)
}
func (m *MockCarService) ListForRent(ctx context.Context) ([]models.Car, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Car), args.Error(1)
}
func (m *MockCarService) ListRentalByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Car, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Car), args.Error(1)
}
func (m *MockCarService) UpdateAvailability(ctx context.Context, actor services.Actor, carID primitive.ObjectID, available bool) (*models.Car, error) {
	args := m.Called(ctx, actor, carID, available)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}
func (m *MockCarService) AddImage(ctx context.Context, carID primitive.ObjectID, imageKey string) error {
	args := m.Called(ctx, carID, imageKey)
	return args.Error(0)
}

type MockUsedCarService struct {
	mock.Mock
}

func (m *MockUsedCarService) Create(ctx context.Context, ad models.UsedCarAd) (*models.UsedCarAd, error) {
	args := m.Called(ctx, ad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UsedCarAd), args.Error(1)
}
func (m *MockUsedCarService) List(ctx context.Context) ([]models.UsedCarAd, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UsedCarAd), args.Error(1)
}

type MockRentalService struct {
	mock.Mock
}

func (m *MockRentalService) Create(ctx context.Context, actor services.Actor, in services.NewRentalInput) (*models.RentalRequest, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalRequest), args.Error(1)
}
func (m *MockRentalService) FindByID(ctx context.Context, rentalID primitive.ObjectID) (*models.RentalRequest, error) {
	args := m.Called(ctx, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalRequest), args.Error(1)
}
func (m *MockRentalService) ListByRenter(ctx context.Context, renterID primitive.ObjectID) ([]models.RentalDetails, error) {
	args := m.Called(ctx, renterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RentalDetails), args.Error(1)
}
func (m *MockRentalService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.RentalDetails, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RentalDetails), args.Error(1)
}
func (m *MockRentalService) UpdateStatus(ctx context.Context, actor services.Actor, rentalID primitive.ObjectID, status string) (*models.RentalRequest, error) {
	args := m.Called(ctx, actor, rentalID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RentalRequest), args.Error(1)
}
func (m *MockRentalService) Delete(ctx context.Context, actor services.Actor, rentalID primitive.ObjectID) error {
	args := m.Called(ctx, actor, rentalID)
	return args.Error(0)
}
func (m *MockRentalService) ExpireStalePending(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Submit(ctx context.Context, actor services.Actor, in services.NewReviewInput) (*models.Review, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}
func (m *MockReviewService) CarReviews(ctx context.Context, carID primitive.ObjectID) ([]models.ReviewDetails, error) {
	args := m.Called(ctx, carID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewDetails), args.Error(1)
}
func (m *MockReviewService) RenterReviews(ctx context.Context, renterID primitive.ObjectID) ([]models.ReviewDetails, error) {
	args := m.Called(ctx, renterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewDetails), args.Error(1)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GeneratePresignedPutURL(ctx context.Context, ownerID, carID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, ownerID, carID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}
func (m *MockStorage) Download(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}
func (m *MockStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}
func (m *MockStorage) PublicURL(key string) string {
	return "https://img.example.com/" + key
}

type MockImageQueue struct {
	mock.Mock
}

func (m *MockImageQueue) EnqueueImageProcess(ctx context.Context, carID primitive.ObjectID, key string) error {
	args := m.Called(ctx, carID, key)
	return args.Error(0)
}

// --- Helpers ---

// withActor stands in for AuthMiddleware in handler tests.
func withActor(id primitive.ObjectID, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyAccountID, id.Hex())
		c.Set(middleware.ContextKeyIsAdmin, isAdmin)
		c.Next()
	}
}

func actorFor(id primitive.ObjectID, isAdmin bool) services.Actor {
	return services.Actor{ID: id.Hex(), IsAdmin: isAdmin}
}
