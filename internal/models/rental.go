package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RentalStatus is the lifecycle state of a rental request.
type RentalStatus string

const (
	RentalPending   RentalStatus = "pending"
	RentalApproved  RentalStatus = "approved"
	RentalRejected  RentalStatus = "rejected"
	RentalCancelled RentalStatus = "cancelled"
	RentalCompleted RentalStatus = "completed"
)

// rentalTransitions is the adjacency table of legal status changes.
var rentalTransitions = map[RentalStatus][]RentalStatus{
	RentalPending:   {RentalApproved, RentalRejected, RentalCancelled},
	RentalApproved:  {RentalCompleted},
	RentalRejected:  {},
	RentalCancelled: {},
	RentalCompleted: {},
}

// IsValid reports whether s is one of the five known statuses.
func (s RentalStatus) IsValid() bool {
	_, ok := rentalTransitions[s]
	return ok
}

// CanTransitionTo reports whether target is reachable from s in one step.
// Staying in the same status is not a transition and returns false.
func (s RentalStatus) CanTransitionTo(target RentalStatus) bool {
	for _, t := range rentalTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s RentalStatus) IsTerminal() bool {
	return len(rentalTransitions[s]) == 0
}

// ParseRentalStatus converts a string into a RentalStatus.
func ParseRentalStatus(s string) (RentalStatus, error) {
	status := RentalStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid rental status: %q", s)
	}
	return status, nil
}

// RentalRequest is a renter's booking proposal for a car and date range.
// OwnerID is copied from the car when the request is created.
type RentalRequest struct {
	Base       `bson:",inline"`
	RenterID   primitive.ObjectID `bson:"renterId" json:"renterId"`
	CarID      primitive.ObjectID `bson:"carId" json:"carId"`
	OwnerID    primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	StartDate  time.Time          `bson:"startDate" json:"startDate"`
	EndDate    time.Time          `bson:"endDate" json:"endDate"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
	Status     RentalStatus       `bson:"status" json:"status"`
}

// Overlaps reports whether the half-open ranges [s1,e1) and [s2,e2) intersect.
// Contiguous ranges (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// OverlapsRange reports whether r's dates intersect [start,end).
func (r *RentalRequest) OverlapsRange(start, end time.Time) bool {
	return Overlaps(r.StartDate, r.EndDate, start, end)
}

// RentalDetails is a rental request with its car and parties resolved.
type RentalDetails struct {
	RentalRequest `bson:",inline"`
	Car           *CarSummary  `bson:"car,omitempty" json:"car,omitempty"`
	Renter        *UserSummary `bson:"renter,omitempty" json:"renter,omitempty"`
	Owner         *UserSummary `bson:"owner,omitempty" json:"owner,omitempty"`
}
