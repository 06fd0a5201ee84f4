package models

// FeedMessageType identifies a live feed message.
type FeedMessageType string

const (
	FeedSnapshot     FeedMessageType = "snapshot"
	FeedNewComplaint FeedMessageType = "new_complaint"
)

// ComplaintView is a complaint with its derived display fields.
type ComplaintView struct {
	Complaint
	StatusLabel  string `json:"status_label"`
	PriorityTier string `json:"priority_tier"`
	Duration     string `json:"duration"`
}

// FeedMessage is pushed to dashboard clients over the websocket.
type FeedMessage struct {
	Type       FeedMessageType `json:"type"`
	Complaints []ComplaintView `json:"complaints"`
	Complaint  *ComplaintView  `json:"complaint,omitempty"`
	// Degraded is set while live updates are unavailable.
	Degraded bool `json:"degraded"`
}

// FeedFilter is sent by a client to change its filter.
type FeedFilter struct {
	Search string `json:"search"`
	Status string `json:"status"`
	Date   string `json:"date"`
}
