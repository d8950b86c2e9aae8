package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"carmarket/api/internal/cache"
	"carmarket/api/internal/config"
	"carmarket/api/internal/db"
	"carmarket/api/internal/models"
	"carmarket/api/internal/utils"
)

func setupTestDB(t *testing.T, dbName string) *mongo.Database {
	database := utils.SetupTestDB(t, dbName,
		db.UsersCollection, db.BrandsCollection, db.CarsCollection,
		db.RentalsCollection, db.ReviewsCollection, db.UsedCarsCollection)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func testConfig() *config.Config {
	return &config.Config{PasswordRegexp: "^.{8,}$"}
}

func float(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func date(day int) time.Time {
	return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC)
}

func asActor(id primitive.ObjectID) Actor {
	return Actor{ID: id.Hex()}
}

func insertUser(t *testing.T, database *mongo.Database, name string) *models.User {
	t.Helper()
	user := &models.User{
		Base:        models.NewBase(),
		Name:        name,
		Email:       name + "@example.com",
		PhoneNumber: "+1-" + primitive.NewObjectID().Hex(),
		Role:        models.RoleUser,
	}
	_, err := database.Collection(db.UsersCollection).InsertOne(context.Background(), user)
	require.NoError(t, err)
	return user
}

func insertCar(t *testing.T, database *mongo.Database, ownerID primitive.ObjectID, forRent bool) *models.Car {
	t.Helper()
	car := &models.Car{
		Base:         models.NewBase(),
		OwnerID:      ownerID,
		Title:        "Corolla 2020",
		Location:     "Lahore",
		PricePerDay:  float(50),
		Availability: true,
		Images:       []string{"cars/corolla.jpg"},
		IsForRent:    forRent,
	}
	_, err := database.Collection(db.CarsCollection).InsertOne(context.Background(), car)
	require.NoError(t, err)
	return car
}

func insertRental(t *testing.T, database *mongo.Database, car *models.Car, renterID primitive.ObjectID, start, end time.Time, status models.RentalStatus) *models.RentalRequest {
	t.Helper()
	rental := &models.RentalRequest{
		Base:       models.NewBase(),
		RenterID:   renterID,
		CarID:      car.ID,
		OwnerID:    car.OwnerID,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: 100,
		Status:     status,
	}
	_, err := database.Collection(db.RentalsCollection).InsertOne(context.Background(), rental)
	require.NoError(t, err)
	return rental
}

// recordingNotifier captures rental notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	events []RentalEvent
}

func (n *recordingNotifier) NotifyRental(_ context.Context, _ *models.RentalRequest, event RentalEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) Events() []RentalEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]RentalEvent(nil), n.events...)
}

func newTestRentalService(database *mongo.Database) (IRentalService, *recordingNotifier) {
	notifier := &recordingNotifier{}
	return NewRentalService(database, cache.NewLocalLocker(), notifier), notifier
}
