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

	"carmarket/api/internal/auth"
	"carmarket/api/internal/config"
	"carmarket/api/internal/db"
	"carmarket/api/internal/models"
)

// BrandUpdate lists the mutable brand fields. Nil fields are left unchanged.
type BrandUpdate struct {
	Name     *string
	Email    *string
	Logo     *string
	Password *string
	Cars     []models.NewCar
}

// IBrandService defines operations on brand accounts and their catalog.
type IBrandService interface {
	Signup(ctx context.Context, name, email, logo, password string) (*models.Brand, error)
	Login(ctx context.Context, email, password string) (*models.Brand, error)
	FindByID(ctx context.Context, brandID primitive.ObjectID) (*models.Brand, error)
	List(ctx context.Context) ([]models.Brand, error)
	Update(ctx context.Context, actor Actor, brandID primitive.ObjectID, upd BrandUpdate) (*models.Brand, error)
	SetVerified(ctx context.Context, brandID primitive.ObjectID, verified bool) (*models.Brand, error)
	Delete(ctx context.Context, actor Actor, brandID primitive.ObjectID) error
	Catalog(ctx context.Context) ([]models.Brand, error)
}

type brandService struct {
	db     *mongo.Database
	policy *auth.PasswordPolicy
}

// NewBrandService creates a new BrandService.
func NewBrandService(database *mongo.Database, cfg *config.Config) (IBrandService, error) {
	policy, err := auth.NewPasswordPolicy(cfg.PasswordRegexp)
	if err != nil {
		return nil, err
	}
	return &brandService{db: database, policy: policy}, nil
}

func (s *brandService) Signup(ctx context.Context, name, email, logo, password string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, validationError("All fields are required.")
	}
	if !s.policy.Allows(password) {
		return nil, validationError("Password does not meet the requirements.")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	collection := s.db.Collection(db.BrandsCollection)
	brand := &models.Brand{
		Name:         name,
		Email:        email,
		Logo:         strings.TrimSpace(logo),
		PasswordHash: hash,
		IsVerified:   false,
		Cars:         []models.NewCar{},
	}
	now := time.Now().UTC()
	err = db.Try(func() error {
		brand.GenID()
		brand.Touch(now)
		_, insertErr := collection.InsertOne(ctx, brand)
		return insertErr
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, newError(ErrDuplicate, "Existing email.")
		}
		return nil, fmt.Errorf("error inserting brand %s after retries: %w", email, err)
	}
	return brand, nil
}

func (s *brandService) Login(ctx context.Context, email, password string) (*models.Brand, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("Email and password are required.")
	}
	var brand models.Brand
	err := s.db.Collection(db.BrandsCollection).FindOne(ctx, bson.M{"email": email}).Decode(&brand)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFoundError("Brand not found.")
		}
		return nil, fmt.Errorf("error finding brand by email %s: %w", email, err)
	}
	if !auth.CheckPasswordHash(password, brand.PasswordHash) {
		return nil, newError(ErrUnauthorized, "Invalid credentials.")
	}
	return &brand, nil
}

// FindByID returns mongo.ErrNoDocuments when the brand does not exist.
func (s *brandService) FindByID(ctx context.Context, brandID primitive.ObjectID) (*models.Brand, error) {
	var brand models.Brand
	err := s.db.Collection(db.BrandsCollection).FindOne(ctx, bson.M{"_id": brandID}).Decode(&brand)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding brand by ID %s: %w", brandID.Hex(), err)
	}
	return &brand, nil
}

func (s *brandService) find(ctx context.Context, filter bson.M) ([]models.Brand, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(db.BrandsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing brands: %w", err)
	}
	defer cursor.Close(ctx)

	brands := []models.Brand{}
	if err := cursor.All(ctx, &brands); err != nil {
		return nil, fmt.Errorf("error decoding brands: %w", err)
	}
	return brands, nil
}

// List returns every brand, verified or not.
func (s *brandService) List(ctx context.Context) ([]models.Brand, error) {
	return s.find(ctx, bson.M{})
}

// Catalog returns verified brands only.
func (s *brandService) Catalog(ctx context.Context) ([]models.Brand, error) {
	return s.find(ctx, bson.M{"isVerified": true})
}

func (s *brandService) Update(ctx context.Context, actor Actor, brandID primitive.ObjectID, upd BrandUpdate) (*models.Brand, error) {
	if !actor.CanActFor(brandID) {
		return nil, forbiddenError("You can only update your own brand.")
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, validationError("Name cannot be empty.")
		}
		set["name"] = name
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" {
			return nil, validationError("Email cannot be empty.")
		}
		set["email"] = email
	}
	if upd.Logo != nil {
		set["logo"] = strings.TrimSpace(*upd.Logo)
	}
	if upd.Password != nil {
		if !s.policy.Allows(*upd.Password) {
			return nil, validationError("Password does not meet the requirements.")
		}
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		set["password"] = hash
	}
	if upd.Cars != nil {
		set["cars"] = upd.Cars
	}

	return s.apply(ctx, brandID, set)
}

// SetVerified is the admin moderation toggle.
func (s *brandService) SetVerified(ctx context.Context, brandID primitive.ObjectID, verified bool) (*models.Brand, error) {
	return s.apply(ctx, brandID, bson.M{"isVerified": verified, "updatedAt": time.Now().UTC()})
}

func (s *brandService) apply(ctx context.Context, brandID primitive.ObjectID, set bson.M) (*models.Brand, error) {
	var brand models.Brand
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.db.Collection(db.BrandsCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": brandID}, bson.M{"$set": set}, opts).
		Decode(&brand)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFoundError("Brand not found.")
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, newError(ErrDuplicate, "Existing email.")
		}
		return nil, fmt.Errorf("error updating brand %s: %w", brandID.Hex(), err)
	}
	return &brand, nil
}

func (s *brandService) Delete(ctx context.Context, actor Actor, brandID primitive.ObjectID) error {
	if !actor.CanActFor(brandID) {
		return forbiddenError("You can only delete your own brand.")
	}
	res, err := s.db.Collection(db.BrandsCollection).DeleteOne(ctx, bson.M{"_id": brandID})
	if err != nil {
		return fmt.Errorf("error deleting brand %s: %w", brandID.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return notFoundError("Brand not found.")
	}
	return nil
}
