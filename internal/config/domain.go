package config

const (
	// Priority tiers, both inclusive lower bounds on reminder_count.
	// Every high priority complaint is also medium priority.
	HighPriorityReminders   = 4
	MediumPriorityReminders = 2

	// Change channels
	ComplaintChangesChannel   = "complaints:changes" // Redis pub/sub
	ComplaintChangesPGChannel = "complaints_changes" // PostgreSQL LISTEN/NOTIFY

	// Live feed
	FeedClientBuffer = 16

	DefaultLanguage = "en"
)
