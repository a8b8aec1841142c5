package resumer

import "fmt"

// NotFoundError means no recording or locator exists for the requested
// conversation — a missing locator during replay or cancel yields this.
type NotFoundError struct {
	ConversationID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no recording found for conversation: %s", e.ConversationID)
}

// ConflictError means a recorder is already active for the conversation.
// A second RecorderWithAddress call for the same conversation is rejected
// while the first recorder has not completed, rather than allowed to race.
type ConflictError struct {
	ConversationID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a recording is already in progress for conversation: %s", e.ConversationID)
}
