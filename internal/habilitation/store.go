package habilitation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists habilitation requests.
type Store interface {
	Create(ctx context.Context, r Request) error
	Get(ctx context.Context, id uuid.UUID) (*Request, error)
	GetByDatapassID(ctx context.Context, datapassID string) (*Request, error)
	ListByStatus(ctx context.Context, status Status) ([]Request, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) error
}
