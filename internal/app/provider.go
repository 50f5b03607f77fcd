package app

import (
	"context"

	"github.com/logan-han/sms-otp-burner/internal/domain"
)

// ProviderClient is the slice of the Telstra client the application
// services need. *telstra.Client satisfies it; tests substitute mocks.
type ProviderClient interface {
	ListVirtualNumbers(ctx context.Context) ([]domain.VirtualNumber, error)
	CreateVirtualNumber(ctx context.Context) (domain.VirtualNumber, error)
	DeleteVirtualNumber(ctx context.Context, number string) error
	ListMessages(ctx context.Context, limit int) ([]map[string]any, error)
}
