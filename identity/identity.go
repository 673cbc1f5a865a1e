package identity

import (
	"context"
	"errors"
)

var ErrInvalidCredential = errors.New("invalid credential")

type Principal struct {
	AccountID string
	Email     string
}

type Verifier interface {
	Verify(ctx context.Context, credential string) (Principal, error)
}
