package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carmarket/api/internal/db"
	"carmarket/api/internal/models"
)

// IUsedCarService defines operations on used-car classified ads.
type IUsedCarService interface {
	Create(ctx context.Context, ad models.UsedCarAd) (*models.UsedCarAd, error)
	List(ctx context.Context) ([]models.UsedCarAd, error)
}

type usedCarService struct {
	db *mongo.Database
}

func NewUsedCarService(database *mongo.Database) IUsedCarService {
	return &usedCarService{db: database}
}

func (s *usedCarService) Create(ctx context.Context, ad models.UsedCarAd) (*models.UsedCarAd, error) {
	ad.Name = strings.TrimSpace(ad.Name)
	ad.City = strings.TrimSpace(ad.City)
	ad.SellerName = strings.TrimSpace(ad.SellerName)
	ad.SellerPhone = strings.TrimSpace(ad.SellerPhone)
	if ad.Name == "" || len(ad.Images) == 0 || ad.Price == "" || ad.Mileage == "" ||
		ad.ModelYear == 0 || ad.City == "" || ad.SellerName == "" || ad.SellerPhone == "" {
		return nil, validationError("Missing required fields.")
	}

	collection := s.db.Collection(db.UsedCarsCollection)
	now := time.Now().UTC()
	err := db.Try(func() error {
		ad.GenID()
		ad.Touch(now)
		_, insertErr := collection.InsertOne(ctx, &ad)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert used car ad after retries: %w", err)
	}
	return &ad, nil
}

// List returns all ads, newest first.
func (s *usedCarService) List(ctx context.Context) ([]models.UsedCarAd, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(db.UsedCarsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing used car ads: %w", err)
	}
	defer cursor.Close(ctx)

	ads := []models.UsedCarAd{}
	if err := cursor.All(ctx, &ads); err != nil {
		return nil, fmt.Errorf("error decoding used car ads: %w", err)
	}
	return ads, nil
}
