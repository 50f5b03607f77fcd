package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/logan-han/sms-otp-burner/internal/domain"
)

// messageFetchLimit caps how many recent messages one snapshot pulls
// from the account-scoped endpoint.
const messageFetchLimit = 50

// Field-name variants the provider has been observed to use for each
// canonical attribute, in resolution order (first non-empty wins).
var (
	fromKeys       = []string{"from", "sourceNumber"}
	bodyKeys       = []string{"messageContent", "body"}
	toKeys         = []string{"to", "destinationNumber"}
	receivedAtKeys = []string{"receivedTimestamp", "createTimestamp", "timestamp"}
)

// MessageService fetches the account's recent inbound messages and
// normalizes them into the canonical Message shape, newest first.
type MessageService struct {
	provider ProviderClient
	logger   *slog.Logger
}

func NewMessageService(provider ProviderClient, logger *slog.Logger) *MessageService {
	return &MessageService{
		provider: provider,
		logger:   logger.With("service", "messages"),
	}
}

// Fetch returns a fresh snapshot of messages plus the currently leased
// numbers. It fails with domain.ErrNoActiveNumbers when no numbers are
// leased (checked against the provider, not any cache).
func (s *MessageService) Fetch(ctx context.Context) (*domain.Inbox, error) {
	numbers, err := s.provider.ListVirtualNumbers(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking active numbers: %w", err)
	}
	if len(numbers) == 0 {
		return nil, domain.ErrNoActiveNumbers
	}

	raw, err := s.provider.ListMessages(ctx, messageFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}
	s.logger.DebugContext(ctx, "Fetched raw messages", "count", len(raw))

	messages := make([]domain.Message, 0, len(raw))
	for _, m := range raw {
		messages = append(messages, domain.Message{
			From:       firstString(m, fromKeys...),
			Body:       firstString(m, bodyKeys...),
			To:         firstString(m, toKeys...),
			ReceivedAt: firstString(m, receivedAtKeys...),
		})
	}

	// Newest first. Ties keep their incoming order.
	sort.SliceStable(messages, func(i, j int) bool {
		return parseTimestamp(messages[i].ReceivedAt).After(parseTimestamp(messages[j].ReceivedAt))
	})

	active := make([]string, 0, len(numbers))
	for _, vn := range numbers {
		active = append(active, vn.Number)
	}

	return &domain.Inbox{Messages: messages, ActiveNumbers: active}, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp is lenient: an unparseable timestamp sorts last
// rather than failing the whole fetch.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
