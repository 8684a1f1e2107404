package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrResourceNotFound    = errors.New("payable resource not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrProcessorFailure    = errors.New("payment processor request failed")
	// ErrPersistence marks a store failure during reconciliation. The
	// callback must be redelivered.
	ErrPersistence = errors.New("failed to persist payment")
)
