package config

import (
	"fmt"
	"strings"
)

// Access levels for routes whose authorization is configurable.
const (
	AccessPublic        = "public"
	AccessAuthenticated = "authenticated"
	AccessAny           = "any"
	AccessOwner         = "owner"
	AccessAdmin         = "admin"
)

// AccessPolicy makes the authorization of ownership-sensitive routes explicit.
// The defaults reproduce the historical behavior: anyone may adjust a
// product's quantity and any authenticated caller may delete any order.
type AccessPolicy struct {
	ProductQuantity string // public | authenticated | admin
	OrderDelete     string // any | owner | admin
}

// LoadAccessPolicy reads POLICY_PRODUCT_QUANTITY and POLICY_ORDER_DELETE.
func LoadAccessPolicy() AccessPolicy {
	return AccessPolicy{
		ProductQuantity: strings.ToLower(envStr("POLICY_PRODUCT_QUANTITY", AccessPublic)),
		OrderDelete:     strings.ToLower(envStr("POLICY_ORDER_DELETE", AccessAny)),
	}
}

// DefaultAccessPolicy returns the historical policy.
func DefaultAccessPolicy() AccessPolicy {
	return AccessPolicy{ProductQuantity: AccessPublic, OrderDelete: AccessAny}
}

// Validate rejects unknown access levels.
func (p AccessPolicy) Validate() error {
	switch p.ProductQuantity {
	case AccessPublic, AccessAuthenticated, AccessAdmin:
	default:
		return fmt.Errorf("config: invalid POLICY_PRODUCT_QUANTITY %q", p.ProductQuantity)
	}
	switch p.OrderDelete {
	case AccessAny, AccessOwner, AccessAdmin:
	default:
		return fmt.Errorf("config: invalid POLICY_ORDER_DELETE %q", p.OrderDelete)
	}
	return nil
}
