package dto

type CreateProductInput struct {
	SellerID            int64
	Title               string
	Content             string
	ProductName         string
	Price               int64
	Quantity            int64
	DeliveryFee         int64
	DeliveryMethod      string
	DeliveryInformation string
	CountryOfOrigin     string
	Thumbnail           string
}

type UpdateProductInput struct {
	ProductID           int64
	SellerID            int64 // authz check
	Title               string
	Content             string
	ProductName         string
	Price               int64
	Quantity            int64
	DeliveryFee         int64
	DeliveryMethod      string
	DeliveryInformation string
	CountryOfOrigin     string
	Thumbnail           string
	Status              string
}
