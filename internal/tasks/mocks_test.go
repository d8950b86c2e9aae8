package tasks_test

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"carmarket/api/internal/email"
	"carmarket/api/internal/models"
	"carmarket/api/internal/services"
)

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
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
	return "https://cdn.example.com/" + key
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
	return args.Get(0).([]models.RentalDetails), args.Error(1)
}

func (m *MockRentalService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.RentalDetails, error) {
	args := m.Called(ctx, ownerID)
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
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, actor services.Actor, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, actor, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
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
	return args.Get(0).([]models.Car), args.Error(1)
}

func (m *MockCarService) ListRentalByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Car, error) {
	args := m.Called(ctx, ownerID)
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
