package model

type Product struct {
	ID          string  `json:"_id,omitempty" bson:"_id,omitempty"`
	Name        string  `json:"name" bson:"name"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
	Image       string  `json:"image,omitempty" bson:"image,omitempty"`
	Price       float64 `json:"price" bson:"price"`
	Quantity    int     `json:"quantity" bson:"quantity"`
	MinOrder    int     `json:"minOrder,omitempty" bson:"minOrder,omitempty"`
}
