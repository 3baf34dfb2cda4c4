package domain

// MessageType identifies the kind of chat participant that sent a message.
type MessageType string

const (
	MessageUser    MessageType = "user"
	MessageAIAgent MessageType = "ai_agent"
)

// ValidMessageType reports whether t is one of the recognized sender kinds.
func ValidMessageType(t MessageType) bool {
	return t == MessageUser || t == MessageAIAgent
}

// ChatMessage is one entry in a session's append-only transcript. The table
// is partitioned by session and sorted by SentAt, which is assigned
// server-side at write time and never supplied by clients.
type ChatMessage struct {
	SessionID   string         `dynamodbav:"sessionId" json:"sessionId"`
	SentAt      string         `dynamodbav:"sentAt" json:"sentAt"`
	MessageID   string         `dynamodbav:"messageId" json:"messageId"`
	SenderID    string         `dynamodbav:"senderId" json:"senderId"`
	SenderName  string         `dynamodbav:"senderName,omitempty" json:"senderName,omitempty"`
	Content     string         `dynamodbav:"content" json:"content"`
	MessageType MessageType    `dynamodbav:"messageType" json:"messageType"`
	Metadata    map[string]any `dynamodbav:"metadata,omitempty" json:"metadata,omitempty"`
}
