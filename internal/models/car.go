package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Car is a listing owned by a user, offered for sale, for rent, or both.
type Car struct {
	Base         `bson:",inline"`
	OwnerID      primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	Location     string             `bson:"location" json:"location"`
	Price        *float64           `bson:"price,omitempty" json:"price,omitempty"`
	PricePerDay  *float64           `bson:"pricePerDay,omitempty" json:"pricePerDay,omitempty"`
	Availability bool               `bson:"availability" json:"availability"`
	Images       []string           `bson:"images" json:"images"`
	IsForSale    bool               `bson:"isForSale" json:"isForSale"`
	IsForRent    bool               `bson:"isForRent" json:"isForRent"`
}

// CarSummary is the subset of a car embedded in rental views.
type CarSummary struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Location    string             `bson:"location" json:"location"`
	Images      []string           `bson:"images" json:"images"`
	PricePerDay *float64           `bson:"pricePerDay,omitempty" json:"pricePerDay,omitempty"`
}
