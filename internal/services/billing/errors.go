package billing

import "errors"

// Service errors
var (
	ErrUnknownPlan         = errors.New("unknown subscription plan")
	ErrUnverifiedSignature = errors.New("webhook signature verification failed")
	ErrUnknownCustomer     = errors.New("no identity for billing customer")
	ErrCheckoutUnavailable = errors.New("checkout session could not be created")
)
