package model

// RoleAdmin is the only role the admin gate accepts. Ordinary users carry an
// empty role.
const RoleAdmin = "admin"

// User is a storefront account keyed by email. Fields share the same name in
// JSON and in the document store so update sets can be built from either.
type User struct {
	ID        string `json:"_id,omitempty" bson:"_id,omitempty"`
	Email     string `json:"email" bson:"email"`
	Role      string `json:"role,omitempty" bson:"role,omitempty"`
	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	Image     string `json:"image,omitempty" bson:"image,omitempty"`
	Phone     string `json:"phone,omitempty" bson:"phone,omitempty"`
	Address   string `json:"address,omitempty" bson:"address,omitempty"`
	Education string `json:"education,omitempty" bson:"education,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
}

// IsAdmin reports whether the stored role grants admin access.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
