package services

import (
	"context"
	"errors"
	"fmt"
	"log"
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

// IUserService defines the interface for user account operations.
type IUserService interface {
	Signup(ctx context.Context, name, email, phoneNumber, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	Exists(ctx context.Context, userID primitive.ObjectID) (bool, error)
	ListNonAdmin(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, actor Actor, userID primitive.ObjectID) (*models.User, error)
}

type userService struct {
	db     *mongo.Database
	policy *auth.PasswordPolicy
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config) (IUserService, error) {
	policy, err := auth.NewPasswordPolicy(cfg.PasswordRegexp)
	if err != nil {
		return nil, err
	}
	return &userService{db: database, policy: policy}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a regular user. Email and phone number must be unused.
func (s *userService) Signup(ctx context.Context, name, email, phoneNumber, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	phoneNumber = strings.TrimSpace(phoneNumber)
	if name == "" || email == "" || phoneNumber == "" || password == "" {
		return nil, validationError("All fields are required.")
	}
	if !s.policy.Allows(password) {
		return nil, validationError("Password does not meet the requirements.")
	}

	collection := s.db.Collection(db.UsersCollection)
	if n, err := collection.CountDocuments(ctx, bson.M{"email": email}); err != nil {
		return nil, fmt.Errorf("error checking email uniqueness for %s: %w", email, err)
	} else if n > 0 {
		return nil, newError(ErrDuplicate, "Existing email.")
	}
	if n, err := collection.CountDocuments(ctx, bson.M{"phoneNumber": phoneNumber}); err != nil {
		return nil, fmt.Errorf("error checking phone uniqueness: %w", err)
	} else if n > 0 {
		return nil, newError(ErrDuplicate, "Existing phone number.")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PhoneNumber:  phoneNumber,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	now := time.Now().UTC()
	err = db.Try(func() error {
		user.GenID()
		user.Touch(now)
		_, insertErr := collection.InsertOne(ctx, user)
		return insertErr
	})
	if err != nil {
		// A concurrent signup can still win the race; the unique indexes decide.
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "phoneNumber_1") {
				return nil, newError(ErrDuplicate, "Existing phone number.")
			}
			return nil, newError(ErrDuplicate, "Existing email.")
		}
		return nil, fmt.Errorf("error inserting user %s after retries: %w", email, err)
	}
	return user, nil
}

// Login checks credentials. Unknown emails are NotFound, bad passwords Unauthorized.
func (s *userService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("Email and password are required.")
	}
	var user models.User
	err := s.db.Collection(db.UsersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFoundError("User not found.")
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, newError(ErrUnauthorized, "Invalid credentials.")
	}
	return &user, nil
}

// FindByID returns mongo.ErrNoDocuments when the user does not exist.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(db.UsersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

func (s *userService) Exists(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	n, err := s.db.Collection(db.UsersCollection).CountDocuments(ctx, bson.M{"_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking user %s: %w", userID.Hex(), err)
	}
	return n > 0, nil
}

// ListNonAdmin returns every regular user, newest first.
func (s *userService) ListNonAdmin(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(db.UsersCollection).Find(ctx, bson.M{"role": bson.M{"$ne": models.RoleAdmin}}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("error decoding users: %w", err)
	}
	return users, nil
}

// Delete removes a user account. Only the user or an admin may do it.
func (s *userService) Delete(ctx context.Context, actor Actor, userID primitive.ObjectID) (*models.User, error) {
	if !actor.CanActFor(userID) {
		return nil, forbiddenError("You can only delete your own account.")
	}
	var user models.User
	err := s.db.Collection(db.UsersCollection).FindOneAndDelete(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFoundError("User not found.")
		}
		return nil, fmt.Errorf("error deleting user %s: %w", userID.Hex(), err)
	}
	log.Printf("Deleted user %s (%s)", user.ID.Hex(), user.Email)
	return &user, nil
}
