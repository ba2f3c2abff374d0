package model

type Review struct {
	ID     string `json:"_id,omitempty" bson:"_id,omitempty"`
	Name   string `json:"name,omitempty" bson:"name,omitempty"`
	Email  string `json:"email" bson:"email"`
	Image  string `json:"image,omitempty" bson:"image,omitempty"`
	Review string `json:"review" bson:"review"`
	Rating int    `json:"rating" bson:"rating"`
}
