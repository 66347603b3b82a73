package storage

import (
	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

// Projection is the trimmed view of the store that goes to durable storage:
// conversations that actually hold messages, folders with heavy structure
// payloads stripped to metadata, and the active pointers plus layout sizes.
// Jobs, the streaming flag and the layout mode are never persisted. Readers
// must tolerate missing optional fields.
type Projection struct {
	Conversations        []state.Conversation `json:"conversations,omitempty"`
	Folders              []state.Folder       `json:"folders,omitempty"`
	ActiveConversationID string               `json:"active_conversation_id,omitempty"`
	ActiveFolderID       string               `json:"active_folder_id,omitempty"`
	Layout               state.Layout         `json:"layout"`
}

// BuildProjection derives the persistable projection from a snapshot.
func BuildProjection(st state.State) *Projection {
	proj := &Projection{
		ActiveConversationID: st.ActiveConversationID,
		ActiveFolderID:       st.ActiveFolderID,
		Layout:               state.Layout{SidebarWidth: st.Layout.SidebarWidth, ViewerHeight: st.Layout.ViewerHeight},
	}
	for _, conv := range st.Conversations {
		if len(conv.Messages) == 0 {
			continue
		}
		conv = conv.Clone()
		for i := range conv.Messages {
			conv.Messages[i].Structures = stripPayloads(conv.Messages[i].Structures)
		}
		proj.Conversations = append(proj.Conversations, conv)
	}
	for _, folder := range st.Folders {
		folder = folder.Clone()
		folder.Outputs = stripPayloads(folder.Outputs)
		proj.Folders = append(proj.Folders, folder)
	}
	// an active conversation that was trimmed for emptiness must not be
	// persisted as a dangling pointer
	if proj.ActiveConversationID != "" && !containsConversation(proj.Conversations, proj.ActiveConversationID) {
		proj.ActiveConversationID = ""
	}
	return proj
}

// Restored converts the projection into the merge input the store expects.
func (p *Projection) Restored() state.RestoredState {
	return state.RestoredState{
		Conversations:        p.Conversations,
		Folders:              p.Folders,
		ActiveConversationID: p.ActiveConversationID,
		ActiveFolderID:       p.ActiveFolderID,
		Layout:               p.Layout,
	}
}

// stripPayloads drops the heavy PDB text and thumbnails, keeping identity
// and metadata so timelines still resolve after a reload.
func stripPayloads(structures []state.Structure) []state.Structure {
	if structures == nil {
		return nil
	}
	out := make([]state.Structure, len(structures))
	for i, s := range structures {
		s.PDB = ""
		s.Thumbnail = ""
		out[i] = s
	}
	return out
}

func containsConversation(convs []state.Conversation, id string) bool {
	for _, conv := range convs {
		if conv.ID == id {
			return true
		}
	}
	return false
}
