package http

import "github.com/logan-han/sms-otp-burner/internal/domain"

// The UI historically read the number under several keys; responses
// keep the aliases so older frontend builds keep working.
type virtualNumberDTO struct {
	Number         string `json:"number"`
	VirtualNumber  string `json:"virtualNumber"`
	SubscriptionID string `json:"subscriptionId"`
	MSISDN         string `json:"msisdn,omitempty"`
	ExpiryDate     string `json:"expiryDate,omitempty"`
}

type leaseResponse struct {
	Message        string             `json:"message"`
	VirtualNumbers []virtualNumberDTO `json:"virtualNumbers"`
	LeasedCount    int                `json:"leasedCount"`
	MaxCount       int                `json:"maxCount"`
}

type numbersResponse struct {
	VirtualNumbers []virtualNumberDTO `json:"virtualNumbers"`
}

// releaseRequest accepts the number under any of three field names;
// resolution order is number, virtualNumber, phoneNumber.
type releaseRequest struct {
	Number        string `json:"number"`
	VirtualNumber string `json:"virtualNumber"`
	PhoneNumber   string `json:"phoneNumber"`
}

func (r releaseRequest) resolve() string {
	switch {
	case r.Number != "":
		return r.Number
	case r.VirtualNumber != "":
		return r.VirtualNumber
	default:
		return r.PhoneNumber
	}
}

type messageDTO struct {
	From       string `json:"from"`
	Body       string `json:"body"`
	To         string `json:"to"`
	ReceivedAt string `json:"receivedAt"`
}

type messagesResponse struct {
	Messages      []messageDTO `json:"messages"`
	ActiveNumbers []string     `json:"activeNumbers"`
}

type errorResponse struct {
	Message        string   `json:"message"`
	Error          any      `json:"error,omitempty"`
	AllowedMethods []string `json:"allowedMethods,omitempty"`
}

func toNumberDTOs(numbers []domain.VirtualNumber, withDetail bool) []virtualNumberDTO {
	dtos := make([]virtualNumberDTO, 0, len(numbers))
	for _, vn := range numbers {
		dto := virtualNumberDTO{
			Number:         vn.Number,
			VirtualNumber:  vn.Number,
			SubscriptionID: vn.Number,
		}
		if withDetail {
			dto.MSISDN = vn.Number
			dto.ExpiryDate = vn.ExpiryDate
		}
		dtos = append(dtos, dto)
	}
	return dtos
}

func toMessageDTOs(messages []domain.Message) []messageDTO {
	dtos := make([]messageDTO, 0, len(messages))
	for _, m := range messages {
		dtos = append(dtos, messageDTO{From: m.From, Body: m.Body, To: m.To, ReceivedAt: m.ReceivedAt})
	}
	return dtos
}
