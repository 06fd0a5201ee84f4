package telegram

import (
	"context"
	"log"
)

// HandleCommand processes /notify_on and /notify_off for chatID and returns the
// reply text. Unknown commands return an empty reply.
func HandleCommand(ctx context.Context, chats ChatStore, chatID int64, command string) string {
	switch command {
	case "notify_on":
		if err := chats.AddChat(ctx, chatID); err != nil {
			log.Printf("Error enabling notifications for chat %d: %v", chatID, err)
			return "Failed to update your preference. Please try again later."
		}
		return "Complaint notifications enabled for this chat."
	case "notify_off":
		if err := chats.RemoveChat(ctx, chatID); err != nil {
			log.Printf("Error disabling notifications for chat %d: %v", chatID, err)
			return "Failed to update your preference. Please try again later."
		}
		return "Complaint notifications disabled for this chat."
	default:
		return ""
	}
}
