package models

// UsedCarAd is a classified ad posted by a private seller.
type UsedCarAd struct {
	Base           `bson:",inline"`
	Name           string   `bson:"name" json:"name"`
	Images         []string `bson:"images" json:"images"`
	Price          string   `bson:"price" json:"price"`
	Mileage        string   `bson:"mileage" json:"mileage"`
	ModelYear      int      `bson:"modelYear" json:"modelYear"`
	City           string   `bson:"city" json:"city"`
	SellerName     string   `bson:"sellerName" json:"sellerName"`
	SellerPhone    string   `bson:"sellerPhone" json:"sellerPhone"`
	SellerComments string   `bson:"sellerComments,omitempty" json:"sellerComments,omitempty"`
}
