package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("session not found")
	ErrConflict   = errors.New("session already exists")
	ErrIncomplete = errors.New("session draft is incomplete")
)

type Store interface {
	Create(ctx context.Context, draft Draft) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	EvictExpired(ctx context.Context, now time.Time) int
	Len() int
}

func NewID() string {
	return uuid.New().String()
}
