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

	"carmarket/api/internal/config"
	"carmarket/api/internal/db"
	"carmarket/api/internal/models"
)

// NewReviewInput holds a review submission. Rating is nil when absent.
type NewReviewInput struct {
	ReviewerID primitive.ObjectID
	ReviewedID primitive.ObjectID
	CarID      *primitive.ObjectID
	RentalID   primitive.ObjectID
	Rating     *int
	Comment    string
	ReviewType string
}

// IReviewService defines review operations.
type IReviewService interface {
	Submit(ctx context.Context, actor Actor, in NewReviewInput) (*models.Review, error)
	CarReviews(ctx context.Context, carID primitive.ObjectID) ([]models.ReviewDetails, error)
	RenterReviews(ctx context.Context, renterID primitive.ObjectID) ([]models.ReviewDetails, error)
}

type reviewService struct {
	db               *mongo.Database
	rentals          IRentalService
	requireCompleted bool
}

// NewReviewService creates a new ReviewService.
func NewReviewService(database *mongo.Database, rentals IRentalService, cfg *config.Config) IReviewService {
	return &reviewService{db: database, rentals: rentals, requireCompleted: cfg.ReviewRequireCompleted}
}

// Submit stores a review. Car reviews come from the rental's renter, renter
// reviews from its owner.
func (s *reviewService) Submit(ctx context.Context, actor Actor, in NewReviewInput) (*models.Review, error) {
	reviewType := models.ReviewType(in.ReviewType)
	if in.ReviewerID.IsZero() || in.ReviewedID.IsZero() || in.RentalID.IsZero() || in.Rating == nil || in.ReviewType == "" {
		return nil, validationError("Missing required fields.")
	}
	if *in.Rating < models.MinRating || *in.Rating > models.MaxRating {
		return nil, validationError("Rating must be between %d and %d.", models.MinRating, models.MaxRating)
	}
	if !reviewType.IsValid() {
		return nil, validationError("Invalid review type.")
	}
	if !actor.Is(in.ReviewerID) {
		return nil, forbiddenError("You can only submit reviews as yourself.")
	}

	rental, err := s.rentals.FindByID(ctx, in.RentalID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFoundError("Rental not found.")
		}
		return nil, err
	}
	if reviewType == models.ReviewCar && rental.RenterID != in.ReviewerID {
		return nil, forbiddenError("Only renters can review cars.")
	}
	if reviewType == models.ReviewRenter && rental.OwnerID != in.ReviewerID {
		return nil, forbiddenError("Only owners can review renters.")
	}
	if s.requireCompleted && rental.Status != models.RentalCompleted {
		return nil, validationError("Reviews can only be submitted for completed rentals.")
	}

	review := &models.Review{
		ReviewerID: in.ReviewerID,
		ReviewedID: in.ReviewedID,
		CarID:      in.CarID,
		RentalID:   in.RentalID,
		Rating:     *in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		ReviewType: reviewType,
	}
	collection := s.db.Collection(db.ReviewsCollection)
	now := time.Now().UTC()
	err = db.Try(func() error {
		review.GenID()
		review.Touch(now)
		_, insertErr := collection.InsertOne(ctx, review)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert review for rental %s after retries: %w", in.RentalID.Hex(), err)
	}
	return review, nil
}

func (s *reviewService) CarReviews(ctx context.Context, carID primitive.ObjectID) ([]models.ReviewDetails, error) {
	return s.list(ctx, bson.M{"carId": carID, "reviewType": models.ReviewCar})
}

func (s *reviewService) RenterReviews(ctx context.Context, renterID primitive.ObjectID) ([]models.ReviewDetails, error) {
	return s.list(ctx, bson.M{"reviewedId": renterID, "reviewType": models.ReviewRenter})
}

func (s *reviewService) list(ctx context.Context, match bson.M) ([]models.ReviewDetails, error) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
	}
	pipeline = append(pipeline, lookupOne(db.UsersCollection, "reviewerId", "reviewer")...)
	// Only the reviewer's public name is exposed.
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{
		"reviewer.password":    0,
		"reviewer.email":       0,
		"reviewer.phoneNumber": 0,
		"reviewer.address":     0,
	}}})

	cursor, err := s.db.Collection(db.ReviewsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error listing reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := []models.ReviewDetails{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("error decoding reviews: %w", err)
	}
	return reviews, nil
}
