package handler

import "github.com/iliyamo/manufacturer-api/internal/model"

// ----- request DTOs -----
// Bodies are explicit shapes; in particular no user-facing body carries a role.

type profileReq struct {
	Name      string `json:"name" validate:"omitempty,max=120"`
	Image     string `json:"image" validate:"omitempty,url"`
	Phone     string `json:"phone" validate:"omitempty,max=40"`
	Address   string `json:"address" validate:"omitempty,max=300"`
	Education string `json:"education" validate:"omitempty,max=200"`
	LinkedIn  string `json:"linkedin" validate:"omitempty,url"`
}

// fields returns the non-empty profile fields to $set.
func (p profileReq) fields() map[string]any {
	set := map[string]any{}
	add := func(k, v string) {
		if v != "" {
			set[k] = v
		}
	}
	add("name", p.Name)
	add("image", p.Image)
	add("phone", p.Phone)
	add("address", p.Address)
	add("education", p.Education)
	add("linkedin", p.LinkedIn)
	return set
}

type roleReq struct {
	// Nil promotes to admin; "" demotes. Checked by the handler.
	Role *string `json:"role"`
}

type productReq struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Image       string  `json:"image" validate:"omitempty,url"`
	Price       float64 `json:"price" validate:"gt=0"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	MinOrder    int     `json:"minOrder" validate:"gte=0"`
}

func (r productReq) model() model.Product {
	return model.Product{
		Name:        r.Name,
		Description: r.Description,
		Image:       r.Image,
		Price:       r.Price,
		Quantity:    r.Quantity,
		MinOrder:    r.MinOrder,
	}
}

type quantityReq struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type reviewReq struct {
	Name   string `json:"name" validate:"required,max=120"`
	Email  string `json:"email" validate:"omitempty,email"`
	Image  string `json:"image" validate:"omitempty,url"`
	Review string `json:"review" validate:"required,max=2000"`
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
}

type orderItemReq struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	Price     float64 `json:"price" validate:"gte=0"`
}

type orderReq struct {
	Email   string         `json:"email" validate:"omitempty,email"`
	Name    string         `json:"name" validate:"max=120"`
	Items   []orderItemReq `json:"items" validate:"dive"`
	Price   float64        `json:"price" validate:"gt=0"`
	Address string         `json:"address" validate:"max=300"`
	Phone   string         `json:"phone" validate:"max=40"`
}

func (r orderReq) model() model.Order {
	o := model.Order{
		Email:   r.Email,
		Name:    r.Name,
		Price:   r.Price,
		Address: r.Address,
		Phone:   r.Phone,
	}
	for _, it := range r.Items {
		o.Items = append(o.Items, model.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return o
}

type paymentReq struct {
	TransactionID string  `json:"transactionId" validate:"required,max=200"`
	Email         string  `json:"email" validate:"omitempty,email"`
	Price         float64 `json:"price" validate:"gte=0"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

type intentReq struct {
	Price float64 `json:"price" validate:"gt=0"`
}
