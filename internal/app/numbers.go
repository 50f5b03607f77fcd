package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/logan-han/sms-otp-burner/internal/domain"
)

// NumberService implements the virtual-number lifecycle: lease up to a
// configured cap, release with reconciliation against the provider's
// live state, and the two query variants. No leased-number state
// survives a call; every operation re-fetches from the provider so a
// provider-side expiry or manual release can never leave us acting on
// stale numbers.
type NumberService struct {
	provider ProviderClient
	logger   *slog.Logger
	maxCount int
}

func NewNumberService(provider ProviderClient, logger *slog.Logger, maxCount int) *NumberService {
	return &NumberService{
		provider: provider,
		logger:   logger.With("service", "numbers"),
		maxCount: maxCount,
	}
}

// Lease tops the account up to the configured maximum. Already at or
// over the cap is an idempotent no-op. Individual create failures are
// logged and skipped; partial success is reported through
// LeasedCount vs MaxCount, never as an error.
func (s *NumberService) Lease(ctx context.Context) (*domain.LeaseResult, error) {
	existing, err := s.provider.ListVirtualNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking existing virtual numbers: %w", err)
	}

	if len(existing) >= s.maxCount {
		s.logger.InfoContext(ctx, "Already at lease cap, not leasing more", "existing", len(existing), "max", s.maxCount)
		return &domain.LeaseResult{
			Message:        fmt.Sprintf("Already have %d virtual numbers (max: %d). Not leasing additional numbers.", len(existing), s.maxCount),
			VirtualNumbers: existing,
			LeasedCount:    len(existing),
			MaxCount:       s.maxCount,
		}, nil
	}

	toLease := s.maxCount - len(existing)
	s.logger.InfoContext(ctx, "Leasing additional numbers", "needed", toLease, "max", s.maxCount)

	numbers := append([]domain.VirtualNumber{}, existing...)
	newlyLeased := 0
	for i := 0; i < toLease; i++ {
		vn, err := s.provider.CreateVirtualNumber(ctx)
		if err != nil {
			// Best-effort bulk lease: keep going, report the shortfall.
			s.logger.ErrorContext(ctx, "Failed to lease virtual number", "attempt", i+1, "of", toLease, "error", err)
			continue
		}
		s.logger.InfoContext(ctx, "Leased new virtual number", "number", vn.Number)
		numbers = append(numbers, vn)
		newlyLeased++
	}

	return &domain.LeaseResult{
		Message:        fmt.Sprintf("Successfully leased %d new virtual numbers", newlyLeased),
		VirtualNumbers: numbers,
		LeasedCount:    len(numbers),
		MaxCount:       s.maxCount,
	}, nil
}

// Release deletes one leased number after confirming it is still in
// the provider's live set. A 404 from the delete itself means the
// number expired or was released externally between the existence
// check and the delete; that counts as success.
func (s *NumberService) Release(ctx context.Context, number string) (string, error) {
	current, err := s.provider.ListVirtualNumbers(ctx)
	if err != nil {
		return "", fmt.Errorf("checking current virtual numbers: %w", err)
	}

	found := false
	for _, vn := range current {
		if number != "" && vn.Number == number {
			found = true
			break
		}
	}
	if !found {
		if len(current) == 0 {
			return "", domain.ErrNoActiveNumbers
		}
		return "", domain.ErrNumberMismatch
	}

	if err := s.provider.DeleteVirtualNumber(ctx, number); err != nil {
		var perr *domain.ProviderError
		if errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound {
			s.logger.WarnContext(ctx, "Number already gone at provider", "number", number)
			return "Number was already released or not found with Telstra.", nil
		}
		return "", fmt.Errorf("releasing number %s: %w", number, err)
	}

	s.logger.InfoContext(ctx, "Released virtual number", "number", number)
	return fmt.Sprintf("Number %s released successfully", number), nil
}

// Current returns the live leased set, failing with
// domain.ErrNoActiveNumbers when the account holds none.
func (s *NumberService) Current(ctx context.Context) ([]domain.VirtualNumber, error) {
	numbers, err := s.provider.ListVirtualNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching active numbers: %w", err)
	}
	if len(numbers) == 0 {
		return nil, domain.ErrNoActiveNumbers
	}
	return numbers, nil
}

// All is the listing variant backing the secondary UI endpoint: on
// provider failure it degrades to an empty set instead of erroring,
// prioritizing UI availability.
func (s *NumberService) All(ctx context.Context) []domain.VirtualNumber {
	numbers, err := s.provider.ListVirtualNumbers(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to list virtual numbers, degrading to empty set", "error", err)
		return []domain.VirtualNumber{}
	}
	return numbers
}
