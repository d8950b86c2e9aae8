package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carmarket/api/internal/db"
	"carmarket/api/internal/models"
)

// NewCarInput holds the fields required to list a car.
type NewCarInput struct {
	OwnerID     primitive.ObjectID
	Title       string
	Description string
	Location    string
	Price       *float64
	PricePerDay *float64
	Images      []string
	IsForSale   bool
	IsForRent   bool
}

// CarUpdate is a partial update. Nil fields are left unchanged.
type CarUpdate struct {
	OwnerID      *primitive.ObjectID
	Title        *string
	Description  *string
	Location     *string
	Price        *float64
	PricePerDay  *float64
	Images       []string
	Availability *bool
	IsForSale    *bool
	IsForRent    *bool
}

// ICarService defines operations on car listings.
type ICarService interface {
	Create(ctx context.Context, actor Actor, in NewCarInput) (*models.Car, error)
	List(ctx context.Context) ([]models.Car, error)
	FindByID(ctx context.Context, carID primitive.ObjectID) (*models.Car, error)
	Update(ctx context.Context, actor Actor, carID primitive.ObjectID, upd CarUpdate) (*models.Car, error)
	Delete(ctx context.Context, actor Actor, carID primitive.ObjectID) error
	ListForRent(ctx context.Context) ([]models.Car, error)
	ListRentalByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Car, error)
	UpdateAvailability(ctx context.Context, actor Actor, carID primitive.ObjectID, available bool) (*models.Car, error)
	AddImage(ctx context.Context, carID primitive.ObjectID, imageKey string) error
}

type carService struct {
	db    *mongo.Database
	users IUserService
}

// NewCarService creates a new CarService.
func NewCarService(database *mongo.Database, users IUserService) ICarService {
	return &carService{db: database, users: users}
}

func (s *carService) requireOwner(ctx context.Context, ownerID primitive.ObjectID) error {
	exists, err := s.users.Exists(ctx, ownerID)
	if err != nil {
		return err
	}
	if !exists {
		return notFoundError("Owner not found.")
	}
	return nil
}

func (s *carService) Create(ctx context.Context, actor Actor, in NewCarInput) (*models.Car, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	if in.OwnerID.IsZero() || in.Title == "" || in.Location == "" || len(in.Images) == 0 {
		return nil, validationError("Missing required fields.")
	}
	if !actor.CanActFor(in.OwnerID) {
		return nil, forbiddenError("You can only list cars you own.")
	}
	if in.IsForRent && in.PricePerDay == nil {
		return nil, validationError("Price per day is required for rental cars.")
	}
	if err := s.requireOwner(ctx, in.OwnerID); err != nil {
		return nil, err
	}

	car := &models.Car{
		OwnerID:      in.OwnerID,
		Title:        in.Title,
		Description:  strings.TrimSpace(in.Description),
		Location:     in.Location,
		Price:        in.Price,
		PricePerDay:  in.PricePerDay,
		Availability: true,
		Images:       in.Images,
		IsForSale:    in.IsForSale,
		IsForRent:    in.IsForRent,
	}
	collection := s.db.Collection(db.CarsCollection)
	now := time.Now().UTC()
	err := db.Try(func() error {
		car.GenID()
		car.Touch(now)
		_, insertErr := collection.InsertOne(ctx, car)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert car for owner %s after retries: %w", in.OwnerID.Hex(), err)
	}
	return car, nil
}

func (s *carService) find(ctx context.Context, filter bson.M) ([]models.Car, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(db.CarsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing cars: %w", err)
	}
	defer cursor.Close(ctx)

	cars := []models.Car{}
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, fmt.Errorf("error decoding cars: %w", err)
	}
	return cars, nil
}

func (s *carService) List(ctx context.Context) ([]models.Car, error) {
	return s.find(ctx, bson.M{})
}

func (s *carService) ListForRent(ctx context.Context) ([]models.Car, error) {
	return s.find(ctx, bson.M{"isForRent": true})
}

func (s *carService) ListRentalByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Car, error) {
	return s.find(ctx, bson.M{"ownerId": ownerID, "isForRent": true})
}

// FindByID returns mongo.ErrNoDocuments when the car does not exist.
func (s *carService) FindByID(ctx context.Context, carID primitive.ObjectID) (*models.Car, error) {
	var car models.Car
	err := s.db.Collection(db.CarsCollection).FindOne(ctx, bson.M{"_id": carID}).Decode(&car)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding car by ID %s: %w", carID.Hex(), err)
	}
	return &car, nil
}

// owned loads a car and checks the actor may modify it.
func (s *carService) owned(ctx context.Context, actor Actor, carID primitive.ObjectID) (*models.Car, error) {
	car, err := s.FindByID(ctx, carID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFoundError("Car not found.")
		}
		return nil, err
	}
	if !actor.CanActFor(car.OwnerID) {
		return nil, forbiddenError("You do not own this car.")
	}
	return car, nil
}

func (s *carService) Update(ctx context.Context, actor Actor, carID primitive.ObjectID, upd CarUpdate) (*models.Car, error) {
	if _, err := s.owned(ctx, actor, carID); err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, validationError("Title cannot be empty.")
		}
		set["title"] = title
	}
	if upd.Location != nil {
		location := strings.TrimSpace(*upd.Location)
		if location == "" {
			return nil, validationError("Location cannot be empty.")
		}
		set["location"] = location
	}
	if upd.OwnerID != nil {
		if err := s.requireOwner(ctx, *upd.OwnerID); err != nil {
			return nil, err
		}
		set["ownerId"] = *upd.OwnerID
	}
	if upd.Description != nil {
		set["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.PricePerDay != nil {
		set["pricePerDay"] = *upd.PricePerDay
	}
	if upd.Images != nil {
		set["images"] = upd.Images
	}
	if upd.Availability != nil {
		set["availability"] = *upd.Availability
	}
	if upd.IsForSale != nil {
		set["isForSale"] = *upd.IsForSale
	}
	if upd.IsForRent != nil {
		set["isForRent"] = *upd.IsForRent
	}
	return s.apply(ctx, carID, bson.M{"$set": set})
}

func (s *carService) UpdateAvailability(ctx context.Context, actor Actor, carID primitive.ObjectID, available bool) (*models.Car, error) {
	if _, err := s.owned(ctx, actor, carID); err != nil {
		return nil, err
	}
	return s.apply(ctx, carID, bson.M{"$set": bson.M{"availability": available, "updatedAt": time.Now().UTC()}})
}

func (s *carService) apply(ctx context.Context, carID primitive.ObjectID, update bson.M) (*models.Car, error) {
	var car models.Car
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.db.Collection(db.CarsCollection).FindOneAndUpdate(ctx, bson.M{"_id": carID}, update, opts).Decode(&car)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFoundError("Car not found.")
		}
		return nil, fmt.Errorf("error updating car %s: %w", carID.Hex(), err)
	}
	return &car, nil
}

func (s *carService) Delete(ctx context.Context, actor Actor, carID primitive.ObjectID) error {
	if _, err := s.owned(ctx, actor, carID); err != nil {
		return err
	}
	res, err := s.db.Collection(db.CarsCollection).DeleteOne(ctx, bson.M{"_id": carID})
	if err != nil {
		return fmt.Errorf("error deleting car %s: %w", carID.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return notFoundError("Car not found.")
	}
	return nil
}

// AddImage appends a processed image key. Called from the image task.
func (s *carService) AddImage(ctx context.Context, carID primitive.ObjectID, imageKey string) error {
	update := bson.M{
		"$addToSet": bson.M{"images": imageKey},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := s.db.Collection(db.CarsCollection).UpdateOne(ctx, bson.M{"_id": carID}, update)
	if err != nil {
		return fmt.Errorf("error adding image to car %s: %w", carID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
