package domain

import "errors"

var (
	// ErrDeploymentNotFound is returned when a deployment record does not exist
	ErrDeploymentNotFound = errors.New("deployment not found")

	// ErrDuplicateNonce is returned when a submission nonce was already claimed
	ErrDuplicateNonce = errors.New("nonce already claimed")
)
