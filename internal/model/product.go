package model

import "time"

// Product status values. Deactivated listings stay in the relational store but
// are excluded from default search results.
const (
	StatusActive      = "active"
	StatusSoldOut     = "sold_out"
	StatusDeactivated = "deactivated"
)

// Product is both the authoritative relational row and the document shape
// indexed into the search backend. The search index is a derived, rebuildable
// projection of this table.
type Product struct {
	ProductID           int64     `db:"product_id" json:"productId"`
	SellerID            int64     `db:"seller_id" json:"sellerId"`
	Title               string    `db:"title" json:"title"`
	Content             string    `db:"content" json:"content"`
	ProductName         string    `db:"product_name" json:"productName"`
	Price               int64     `db:"price" json:"price"`
	Quantity            int64     `db:"quantity" json:"quantity"`
	DeliveryFee         int64     `db:"delivery_fee" json:"deliveryFee"`
	DeliveryMethod      string    `db:"delivery_method" json:"deliveryMethod"`
	DeliveryInformation string    `db:"delivery_information" json:"deliveryInformation"`
	CountryOfOrigin     string    `db:"country_of_origin" json:"countryOfOrigin"`
	Thumbnail           string    `db:"thumbnail" json:"thumbnail"`
	Status              string    `db:"status" json:"status"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}
