package usecases

import (
	"context"

	"github.com/capturegame/capture/internal/core/domain"
	"github.com/capturegame/capture/internal/core/ports"
)

// RunService handles archived run lookups.
type RunService struct {
	runs ports.RunRepository
}

// NewRunService creates a new RunService.
func NewRunService(runs ports.RunRepository) *RunService {
	return &RunService{runs: runs}
}

// ListByUser returns a user's archived runs, newest first.
func (s *RunService) ListByUser(ctx context.Context, userID string) ([]domain.Run, error) {
	return s.runs.ListByUser(ctx, userID)
}
