package domain

// VirtualNumber is a temporary phone number held at the provider. The
// provider is the source of truth for the leased set; instances of this
// type are only valid for the request that fetched them.
type VirtualNumber struct {
	Number     string
	ExpiryDate string
}

// LeaseResult reports the outcome of a lease operation, including
// partial success (some create calls failed).
type LeaseResult struct {
	Message        string
	VirtualNumbers []VirtualNumber
	LeasedCount    int
	MaxCount       int
}

// Message is an inbound SMS after normalizing the provider's field-name
// variants into one canonical shape.
type Message struct {
	From       string
	To         string
	Body       string
	ReceivedAt string
}

// Inbox is a fresh snapshot of the account's recent messages together
// with the numbers currently leased.
type Inbox struct {
	Messages      []Message
	ActiveNumbers []string
}
