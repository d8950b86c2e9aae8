package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ReviewType says who is being reviewed.
type ReviewType string

const (
	ReviewCar    ReviewType = "car"    // written by the renter about the car
	ReviewRenter ReviewType = "renter" // written by the owner about the renter
)

func (t ReviewType) IsValid() bool {
	return t == ReviewCar || t == ReviewRenter
}

const (
	MinRating = 1
	MaxRating = 5
)

// Review is feedback tied to a rental.
type Review struct {
	Base       `bson:",inline"`
	ReviewerID primitive.ObjectID  `bson:"reviewerId" json:"reviewerId"`
	ReviewedID primitive.ObjectID  `bson:"reviewedId" json:"reviewedId"`
	CarID      *primitive.ObjectID `bson:"carId,omitempty" json:"carId,omitempty"`
	RentalID   primitive.ObjectID  `bson:"rentalId" json:"rentalId"`
	Rating     int                 `bson:"rating" json:"rating"`
	Comment    string              `bson:"comment,omitempty" json:"comment,omitempty"`
	ReviewType ReviewType          `bson:"reviewType" json:"reviewType"`
}

// ReviewDetails is a review with the reviewer's public name resolved.
type ReviewDetails struct {
	Review   `bson:",inline"`
	Reviewer *UserSummary `bson:"reviewer,omitempty" json:"reviewer,omitempty"`
}
