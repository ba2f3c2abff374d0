package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder_CurrentStatus(t *testing.T) {
	assert.Equal(t, OrderStatusUnpaid, Order{}.CurrentStatus())
	assert.Equal(t, OrderStatusPending, Order{Status: OrderStatusPending}.CurrentStatus())
	assert.Equal(t, "shipped", Order{Status: "shipped"}.CurrentStatus())
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, User{Role: RoleAdmin}.IsAdmin())
	assert.False(t, User{Role: "Admin"}.IsAdmin())
	assert.False(t, User{}.IsAdmin())
}
