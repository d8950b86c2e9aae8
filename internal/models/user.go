package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Role is the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a marketplace member: a seller, a car owner, a renter, or an admin.
type User struct {
	Base         `bson:",inline"`
	Name         string `bson:"name" json:"name"`
	Email        string `bson:"email" json:"email"`
	PhoneNumber  string `bson:"phoneNumber" json:"phoneNumber"`
	PasswordHash string `bson:"password" json:"-"`
	ProfilePic   string `bson:"profilePic,omitempty" json:"profilePic,omitempty"`
	Address      string `bson:"address,omitempty" json:"address,omitempty"`
	Role         Role   `bson:"role" json:"role"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSummary is the contact subset of a user embedded in rental and review views.
type UserSummary struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	PhoneNumber string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
}
