package service

import "errors"

var (
	// ErrInvalidStatus is returned when an admin finalizes an order with an empty status.
	ErrInvalidStatus = errors.New("status must not be empty")
	// ErrInvalidAmount is returned for prices that do not yield a positive charge.
	ErrInvalidAmount = errors.New("price must be a positive amount")
)
