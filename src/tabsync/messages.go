package tabsync

import (
	"time"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

// MessageType discriminates the sync envelope. The wire names match the
// browser build so recorded traffic stays readable.
type MessageType string

const (
	FoldersUpdate            MessageType = "FOLDERS_UPDATE"
	ConversationsUpdate      MessageType = "CONVERSATIONS_UPDATE"
	JobUpdate                MessageType = "JOB_UPDATE"
	ActiveFolderChange       MessageType = "ACTIVE_FOLDER_CHANGE"
	ActiveConversationChange MessageType = "ACTIVE_CONVERSATION_CHANGE"
	FullStateRequest         MessageType = "FULL_STATE_REQUEST"
	FullStateResponse        MessageType = "FULL_STATE_RESPONSE"
)

// FullState is the bootstrap payload a settled tab answers a newcomer with.
type FullState struct {
	Conversations        []state.Conversation `json:"conversations"`
	Folders              []state.Folder       `json:"folders"`
	ActiveConversationID string               `json:"active_conversation_id,omitempty"`
	ActiveFolderID       string               `json:"active_folder_id,omitempty"`
}

// SyncMessage is the broadcast envelope. Exactly one payload field is set,
// chosen by Type. Sync messages are transient; they are never persisted.
type SyncMessage struct {
	Type      MessageType `json:"type"`
	SenderID  string      `json:"sender_id"`
	Timestamp time.Time   `json:"timestamp"`

	Folders       []state.Folder       `json:"folders,omitempty"`
	Conversations []state.Conversation `json:"conversations,omitempty"`
	Job           *state.Job           `json:"job,omitempty"`
	ActiveID      string               `json:"active_id,omitempty"`
	State         *FullState           `json:"state,omitempty"`
}
