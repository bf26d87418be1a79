package service

import (
	"context"

	"mymerch/models"
)

// ProofServiceInterface defines order proof generation
type ProofServiceInterface interface {
	RenderProofHTML(ctx context.Context, order *models.Order) (string, error)
	GeneratePDF(ctx context.Context, order *models.Order) ([]byte, error)
}

// Ensure ProofService implements ProofServiceInterface
var _ ProofServiceInterface = (*ProofService)(nil)
