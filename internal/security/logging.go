package security

import (
	"github.com/charmbracelet/log"
)

// LogAdminAction records an admin-credential operation (one of the Admin*
// store methods) for audit purposes. Callers supply the resolved actor and,
// when RequireJustification is configured, the justification they were
// required to provide before the call was allowed through.
func LogAdminAction(action, actorID, justification string, fields ...any) {
	args := make([]any, 0, len(fields)+4)
	args = append(args, "action", action, "actor", actorID)
	if justification != "" {
		args = append(args, "justification", justification)
	}
	args = append(args, fields...)
	log.Info("Admin audit", args...)
}

// LogMembershipAction records a membership mutation (add, update, remove) or
// an ownership transfer for audit purposes, in the form
// `action=<add|update|remove|transfer> actor=… conversation=… target=… [from=…] [to=…]`.
// from/to are omitted when empty — only ownership-transfer events use them.
func LogMembershipAction(action, actorID, conversationID, target, from, to string) {
	args := []any{"action", action, "actor", actorID, "conversation", conversationID, "target", target}
	if from != "" {
		args = append(args, "from", from)
	}
	if to != "" {
		args = append(args, "to", to)
	}
	log.Info("Membership audit", args...)
}
