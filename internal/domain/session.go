package domain

// SessionStatus is the lifecycle state of a coaching session. Sessions are
// never deleted; they only transition between these states.
type SessionStatus string

const (
	StatusScheduled   SessionStatus = "scheduled"
	StatusCompleted   SessionStatus = "completed"
	StatusCancelled   SessionStatus = "cancelled"
	StatusRescheduled SessionStatus = "rescheduled"
)

// ValidStatus reports whether s is a recognized session status.
func ValidStatus(s SessionStatus) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// SessionType distinguishes one-on-one sessions from group sessions.
type SessionType string

const (
	SessionSingle SessionType = "single"
	SessionGroup  SessionType = "group"
)

// Session is a scheduled coaching session. The table is partitioned by the
// owning coach and sorted by start time; SessionID is globally unique but is
// not part of the primary key.
type Session struct {
	CoachID         string        `dynamodbav:"coachId" json:"coachId"`
	StartsAt        string        `dynamodbav:"startsAt" json:"startsAt"`
	SessionID       string        `dynamodbav:"sessionId" json:"sessionId"`
	ClientIDs       []string      `dynamodbav:"clientIds,omitempty" json:"clientIds,omitempty"`
	SessionType     SessionType   `dynamodbav:"sessionType" json:"sessionType"`
	DurationMinutes int           `dynamodbav:"durationMinutes" json:"durationMinutes"`
	Status          SessionStatus `dynamodbav:"status" json:"status"`
	RoomName        string        `dynamodbav:"roomName,omitempty" json:"roomName,omitempty"`
	CreatedAt       string        `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt       string        `dynamodbav:"updatedAt" json:"updatedAt"`
}
