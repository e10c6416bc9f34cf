package delivery

import "strings"

// Status is a provider-reported message lifecycle state.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusSending     Status = "sending"
	StatusSent        Status = "sent"
	StatusDelivered   Status = "delivered"
	StatusRead        Status = "read"
	StatusFailed      Status = "failed"
	StatusUndelivered Status = "undelivered"
	StatusAccepted    Status = "accepted"
	StatusScheduled   Status = "scheduled"
	StatusCanceled    Status = "canceled"
	StatusReceiving   Status = "receiving"
	StatusReceived    Status = "received"
)

var knownStatuses = map[Status]struct{}{
	StatusQueued: {}, StatusSending: {}, StatusSent: {}, StatusDelivered: {},
	StatusRead: {}, StatusFailed: {}, StatusUndelivered: {}, StatusAccepted: {},
	StatusScheduled: {}, StatusCanceled: {}, StatusReceiving: {}, StatusReceived: {},
}

// ParseStatus accepts any known status, case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := knownStatuses[s]
	return s, ok
}

// Terminal reports whether s ends the delivery attempt and stamps the delivery time.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusFailed, StatusUndelivered:
		return true
	}
	return false
}
