package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carmarket/api/internal/cache"
	"carmarket/api/internal/db"
	"carmarket/api/internal/models"
)

// RentalEvent names what happened to a rental request, for notifications.
type RentalEvent string

const (
	RentalEventCreated RentalEvent = "created"
	RentalEventStatus  RentalEvent = "status"
	RentalEventExpired RentalEvent = "expired"
)

// IRentalNotifier is told about rental changes. Implementations must not block
// on delivery; failures are logged by the caller and never fail the request.
type IRentalNotifier interface {
	NotifyRental(ctx context.Context, rental *models.RentalRequest, event RentalEvent) error
}

// NewRentalInput holds a renter's booking proposal. Nil or zero fields are missing.
type NewRentalInput struct {
	RenterID   primitive.ObjectID
	CarID      primitive.ObjectID
	StartDate  time.Time
	EndDate    time.Time
	TotalPrice *float64
}

// IRentalService defines the rental request operations.
type IRentalService interface {
	Create(ctx context.Context, actor Actor, in NewRentalInput) (*models.RentalRequest, error)
	FindByID(ctx context.Context, rentalID primitive.ObjectID) (*models.RentalRequest, error)
	ListByRenter(ctx context.Context, renterID primitive.ObjectID) ([]models.RentalDetails, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.RentalDetails, error)
	UpdateStatus(ctx context.Context, actor Actor, rentalID primitive.ObjectID, status string) (*models.RentalRequest, error)
	Delete(ctx context.Context, actor Actor, rentalID primitive.ObjectID) error
	ExpireStalePending(ctx context.Context, now time.Time) (int, error)
}

type rentalService struct {
	db       *mongo.Database
	locker   cache.Locker
	notifier IRentalNotifier
}

// NewRentalService creates a new RentalService. notifier may be nil.
func NewRentalService(database *mongo.Database, locker cache.Locker, notifier IRentalNotifier) IRentalService {
	return &rentalService{db: database, locker: locker, notifier: notifier}
}

func bookingLockKey(carID primitive.ObjectID) string {
	return "booking:car:" + carID.Hex()
}

func (s *rentalService) notify(ctx context.Context, rental *models.RentalRequest, event RentalEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyRental(ctx, rental, event); err != nil {
		log.Printf("Failed to enqueue %s notification for rental %s: %v", event, rental.ID.Hex(), err)
	}
}

func (s *rentalService) lockCar(ctx context.Context, carID primitive.ObjectID) (func(), error) {
	release, err := s.locker.Acquire(ctx, bookingLockKey(carID))
	if err != nil {
		if errors.Is(err, cache.ErrLockBusy) {
			return nil, newError(ErrConflict, "Car is being booked by someone else, please retry.")
		}
		return nil, fmt.Errorf("error acquiring booking lock for car %s: %w", carID.Hex(), err)
	}
	return release, nil
}

// hasApprovedOverlap reports whether an approved rental of the car, other than
// exclude, intersects [start,end).
func (s *rentalService) hasApprovedOverlap(ctx context.Context, carID primitive.ObjectID, start, end time.Time, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"carId":     carID,
		"status":    models.RentalApproved,
		"startDate": bson.M{"$lt": end},
		"endDate":   bson.M{"$gt": start},
	}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	n, err := s.db.Collection(db.RentalsCollection).CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking overlapping rentals for car %s: %w", carID.Hex(), err)
	}
	return n > 0, nil
}

// Create books a car for the renter in state pending. Only approved rentals
// block a date range; pending requests may overlap each other.
func (s *rentalService) Create(ctx context.Context, actor Actor, in NewRentalInput) (*models.RentalRequest, error) {
	if in.RenterID.IsZero() || in.CarID.IsZero() || in.StartDate.IsZero() || in.EndDate.IsZero() || in.TotalPrice == nil {
		return nil, validationError("Missing required fields.")
	}
	if !in.StartDate.Before(in.EndDate) {
		return nil, validationError("Invalid date range.")
	}
	if *in.TotalPrice < 0 {
		return nil, validationError("Total price cannot be negative.")
	}
	if !actor.CanActFor(in.RenterID) {
		return nil, forbiddenError("You can only request rentals for yourself.")
	}

	release, err := s.lockCar(ctx, in.CarID)
	if err != nil {
		return nil, err
	}
	defer release()

	var car models.Car
	err = s.db.Collection(db.CarsCollection).FindOne(ctx, bson.M{"_id": in.CarID, "isForRent": true}).Decode(&car)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFoundError("Car not available for rent")
		}
		return nil, fmt.Errorf("error finding car %s: %w", in.CarID.Hex(), err)
	}

	overlap, err := s.hasApprovedOverlap(ctx, in.CarID, in.StartDate, in.EndDate, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, newError(ErrConflict, "Car is already rented during the selected dates")
	}

	n, err := s.db.Collection(db.UsersCollection).CountDocuments(ctx, bson.M{"_id": in.RenterID}, options.Count().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("error finding renter %s: %w", in.RenterID.Hex(), err)
	}
	if n == 0 {
		return nil, notFoundError("Renter not found")
	}

	rental := &models.RentalRequest{
		RenterID:   in.RenterID,
		CarID:      in.CarID,
		OwnerID:    car.OwnerID,
		StartDate:  in.StartDate.UTC(),
		EndDate:    in.EndDate.UTC(),
		TotalPrice: *in.TotalPrice,
		Status:     models.RentalPending,
	}
	collection := s.db.Collection(db.RentalsCollection)
	now := time.Now().UTC()
	err = db.Try(func() error {
		rental.GenID()
		rental.Touch(now)
		_, insertErr := collection.InsertOne(ctx, rental)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert rental request for car %s after retries: %w", in.CarID.Hex(), err)
	}

	s.notify(ctx, rental, RentalEventCreated)
	return rental, nil
}

// FindByID returns mongo.ErrNoDocuments when the request does not exist.
func (s *rentalService) FindByID(ctx context.Context, rentalID primitive.ObjectID) (*models.RentalRequest, error) {
	var rental models.RentalRequest
	err := s.db.Collection(db.RentalsCollection).FindOne(ctx, bson.M{"_id": rentalID}).Decode(&rental)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding rental %s: %w", rentalID.Hex(), err)
	}
	return &rental, nil
}

func (s *rentalService) ListByRenter(ctx context.Context, renterID primitive.ObjectID) ([]models.RentalDetails, error) {
	return s.listDetails(ctx, bson.M{"renterId": renterID})
}

func (s *rentalService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.RentalDetails, error) {
	return s.listDetails(ctx, bson.M{"ownerId": ownerID})
}

// lookupOne joins a single document from another collection into field as.
func lookupOne(from, localField, as string) bson.A {
	return bson.A{
		bson.D{{Key: "$lookup", Value: bson.M{"from": from, "localField": localField, "foreignField": "_id", "as": as}}},
		bson.D{{Key: "$unwind", Value: bson.M{"path": "$" + as, "preserveNullAndEmptyArrays": true}}},
	}
}

func (s *rentalService) listDetails(ctx context.Context, match bson.M) ([]models.RentalDetails, error) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
	}
	pipeline = append(pipeline, lookupOne(db.CarsCollection, "carId", "car")...)
	pipeline = append(pipeline, lookupOne(db.UsersCollection, "renterId", "renter")...)
	pipeline = append(pipeline, lookupOne(db.UsersCollection, "ownerId", "owner")...)
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{
		"renter.password": 0,
		"owner.password":  0,
	}}})

	cursor, err := s.db.Collection(db.RentalsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error listing rentals: %w", err)
	}
	defer cursor.Close(ctx)

	rentals := []models.RentalDetails{}
	if err := cursor.All(ctx, &rentals); err != nil {
		return nil, fmt.Errorf("error decoding rentals: %w", err)
	}
	return rentals, nil
}

// UpdateStatus moves a rental along the status machine. Setting the current
// status again is a no-op that succeeds.
func (s *rentalService) UpdateStatus(ctx context.Context, actor Actor, rentalID primitive.ObjectID, status string) (*models.RentalRequest, error) {
	target, err := models.ParseRentalStatus(status)
	if err != nil {
		return nil, validationError("Invalid status")
	}

	rental, err := s.FindByID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFoundError("Rental request not found")
		}
		return nil, err
	}

	isRenter := actor.Is(rental.RenterID)
	isOwner := actor.Is(rental.OwnerID)
	if !actor.IsAdmin && !isRenter && !isOwner {
		return nil, forbiddenError("You are not a party to this rental.")
	}
	if rental.Status == target {
		return rental, nil
	}
	if !rental.Status.CanTransitionTo(target) {
		return nil, newError(ErrIllegalTransition, "Cannot change status from %s to %s.", rental.Status, target)
	}
	switch target {
	case models.RentalCancelled:
		if !actor.IsAdmin && !isRenter {
			return nil, forbiddenError("Only the renter can cancel a rental request.")
		}
	default:
		if !actor.IsAdmin && !isOwner {
			return nil, forbiddenError("Only the car owner can %s a rental request.", verbFor(target))
		}
	}

	if target == models.RentalApproved {
		release, err := s.lockCar(ctx, rental.CarID)
		if err != nil {
			return nil, err
		}
		defer release()

		overlap, err := s.hasApprovedOverlap(ctx, rental.CarID, rental.StartDate, rental.EndDate, rental.ID)
		if err != nil {
			return nil, err
		}
		if overlap {
			return nil, newError(ErrConflict, "Car is already rented during the selected dates")
		}
	}

	var updated models.RentalRequest
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.db.Collection(db.RentalsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": rental.ID, "status": rental.Status},
		bson.M{"$set": bson.M{"status": target, "updatedAt": time.Now().UTC()}},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, newError(ErrIllegalTransition, "Rental request was modified concurrently, reload and retry.")
		}
		return nil, fmt.Errorf("error updating status of rental %s: %w", rental.ID.Hex(), err)
	}

	s.notify(ctx, &updated, RentalEventStatus)
	return &updated, nil
}

func verbFor(status models.RentalStatus) string {
	switch status {
	case models.RentalApproved:
		return "approve"
	case models.RentalRejected:
		return "reject"
	case models.RentalCompleted:
		return "complete"
	}
	return "update"
}

// Delete removes a request. Only the renter or an admin may delete.
func (s *rentalService) Delete(ctx context.Context, actor Actor, rentalID primitive.ObjectID) error {
	rental, err := s.FindByID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notFoundError("Rental request not found")
		}
		return err
	}
	if !actor.CanActFor(rental.RenterID) {
		return forbiddenError("Only the renter can delete a rental request.")
	}
	res, err := s.db.Collection(db.RentalsCollection).DeleteOne(ctx, bson.M{"_id": rentalID})
	if err != nil {
		return fmt.Errorf("error deleting rental %s: %w", rentalID.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return notFoundError("Rental request not found")
	}
	return nil
}

// ExpireStalePending cancels pending requests whose start date is before now
// and returns how many were cancelled.
func (s *rentalService) ExpireStalePending(ctx context.Context, now time.Time) (int, error) {
	collection := s.db.Collection(db.RentalsCollection)
	filter := bson.M{"status": models.RentalPending, "startDate": bson.M{"$lt": now}}
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error finding stale rentals: %w", err)
	}
	var stale []models.RentalRequest
	if err := cursor.All(ctx, &stale); err != nil {
		return 0, fmt.Errorf("error decoding stale rentals: %w", err)
	}

	expired := 0
	for i := range stale {
		rental := &stale[i]
		res, err := collection.UpdateOne(ctx,
			bson.M{"_id": rental.ID, "status": models.RentalPending},
			bson.M{"$set": bson.M{"status": models.RentalCancelled, "updatedAt": now}},
		)
		if err != nil {
			log.Printf("Error expiring rental %s: %v", rental.ID.Hex(), err)
			continue
		}
		if res.ModifiedCount == 0 {
			continue
		}
		expired++
		rental.Status = models.RentalCancelled
		rental.UpdatedAt = now
		s.notify(ctx, rental, RentalEventExpired)
	}
	return expired, nil
}
