// Package timeline derives the render-facing view of a conversation: one
// causally ordered, deduplicated sequence of messages and structures merged
// from the live job stream, persisted messages and folder outputs. It is a
// pure read-side projection; nothing here mutates the store.
package timeline

import (
	"sort"
	"time"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

// Item is one timeline entry: either a message or a structure, never both.
type Item struct {
	Message   *state.Message
	Structure *state.Structure
	Timestamp time.Time
}

// Reconcile builds the timeline for one conversation from three sources,
// in fixed dedup priority: (1) the streaming job's step events, when the
// job belongs to this conversation; (2) structures embedded in persisted
// messages; (3) the associated folder's outputs, as a fallback for
// structures whose job is gone after a reload. Structure identity (the id)
// is unique across the result regardless of source, and the first seen
// copy keeps its metadata.
//
// Messages carry browser timestamps while step events carry backend
// timestamps, so a structure's effective timestamp is clamped to the
// latest message timestamp seen before it: a streamed structure never
// sorts ahead of the user message that triggered it, whatever the two
// clocks say.
func Reconcile(st state.State, conversationID string) []Item {
	var conv *state.Conversation
	for i := range st.Conversations {
		if st.Conversations[i].ID == conversationID {
			conv = &st.Conversations[i]
			break
		}
	}
	if conv == nil {
		return nil
	}

	seen := make(map[string]bool)
	var items []Item
	var latestMessage time.Time

	clamp := func(ts time.Time) time.Time {
		if ts.Before(latestMessage) {
			return latestMessage
		}
		return ts
	}

	// messages first: they fix the reference clock for everything else
	for i := range conv.Messages {
		msg := &conv.Messages[i]
		if msg.CreatedAt.After(latestMessage) {
			latestMessage = msg.CreatedAt
		}
		items = append(items, Item{Message: msg, Timestamp: msg.CreatedAt})
	}

	// source 1: the live stream
	if st.Job != nil && st.Job.ConversationID == conversationID {
		for i := range st.Job.Events {
			ev := &st.Job.Events[i]
			for j := range ev.Structures {
				structure := &ev.Structures[j]
				if seen[structure.ID] {
					continue
				}
				seen[structure.ID] = true
				items = append(items, Item{Structure: structure, Timestamp: clamp(ev.Timestamp)})
			}
		}
	}

	// source 2: structures already folded into messages
	for i := range conv.Messages {
		msg := &conv.Messages[i]
		for j := range msg.Structures {
			structure := &msg.Structures[j]
			if seen[structure.ID] {
				continue
			}
			seen[structure.ID] = true
			ts := structure.CreatedAt
			if ts.IsZero() {
				// no explicit creation time: place it just before its
				// owning message
				ts = msg.CreatedAt.Add(-time.Millisecond)
			}
			items = append(items, Item{Structure: structure, Timestamp: ts})
		}
	}

	// source 3: folder outputs, the reload fallback
	if conv.FolderID != "" {
		for i := range st.Folders {
			folder := &st.Folders[i]
			if folder.ID != conv.FolderID {
				continue
			}
			for j := range folder.Outputs {
				structure := &folder.Outputs[j]
				if seen[structure.ID] {
					continue
				}
				seen[structure.ID] = true
				items = append(items, Item{Structure: structure, Timestamp: clamp(folder.UpdatedAt)})
			}
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	return items
}
