// internal/workers/matching/notify-donor-hospitals/models.go
package notifydonorhospitals

import "organmatch/internal/models"

type Input struct {
	RequestID        string               `json:"requestId"`
	Urgency          int                  `json:"urgency"`
	Organ            string               `json:"organ,omitempty"`
	ReceiverLocation string               `json:"receiverLocation,omitempty"`
	Matches          []models.MatchResult `json:"matches"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	RequestID      string   `json:"requestId"`
	Status         string   `json:"status"`
	EmailsSent     int      `json:"emailsSent"`
	SMSSent        int      `json:"smsSent"`
	Failed         int      `json:"failed"`
	Skipped        []string `json:"skipped"`
	SentAt         string   `json:"sentAt"`
}

// Statuses
const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
