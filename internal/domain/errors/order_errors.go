package errors

import "errors"

var (
	// ErrOrderNotFound indicates that the order does not exist
	ErrOrderNotFound = errors.New("order not found")

	// ErrPaymentNotFound indicates that the payment does not exist
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrSubscriptionNotFound indicates that the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrDuplicateProviderRef indicates a second payment with the same (provider, providerRef)
	ErrDuplicateProviderRef = errors.New("payment with this provider reference already exists")
)
