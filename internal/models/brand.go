package models

// Transmission of a new-car variant.
type Transmission string

const (
	TransmissionAutomatic Transmission = "automatic"
	TransmissionManual    Transmission = "manual"
)

// VariantColor is a paint option offered for a variant.
type VariantColor struct {
	Name string `bson:"name" json:"name"`
	Hex  string `bson:"hex" json:"hex"`
}

// VariantReview is a short catalog rating attached to a variant.
type VariantReview struct {
	Rating  int    `bson:"rating" json:"rating"`
	Comment string `bson:"comment" json:"comment"`
}

// NewCarVariant is one trim of a catalog model.
type NewCarVariant struct {
	Name         string          `bson:"name" json:"name" binding:"required"`
	Price        float64         `bson:"price" json:"price" binding:"gte=0"`
	Image        string          `bson:"image" json:"image"`
	Reviews      []VariantReview `bson:"reviews" json:"reviews"`
	Transmission Transmission    `bson:"transmission" json:"transmission" binding:"omitempty,oneof=automatic manual"`
	Engine       string          `bson:"engine" json:"engine"`
	Mileage      float64         `bson:"mileage" json:"mileage"`
	Colors       []VariantColor  `bson:"colors" json:"colors"`
	DeliveryTime int             `bson:"deliveryTime" json:"deliveryTime"` // days
}

// NewCar is a model in a brand's catalog.
type NewCar struct {
	Name     string          `bson:"name" json:"name" binding:"required"`
	Variants []NewCarVariant `bson:"variants" json:"variants" binding:"dive"`
}

// Brand is a manufacturer or dealer account. Brands stay out of the public
// catalog until an admin verifies them.
type Brand struct {
	Base         `bson:",inline"`
	Name         string   `bson:"name" json:"name"`
	Email        string   `bson:"email" json:"email"`
	PasswordHash string   `bson:"password" json:"-"`
	Logo         string   `bson:"logo" json:"logo"`
	IsVerified   bool     `bson:"isVerified" json:"isVerified"`
	Cars         []NewCar `bson:"cars" json:"cars"`
}
