package state

// Merge semantics for the two places state from elsewhere flows back in:
// deltas broadcast by other tabs and the projection restored from durable
// storage. Both merges are commutative and idempotent so delivery order
// between tabs never matters.

// MergeConversationLists unions two conversation lists by id. For ids on
// both sides the incoming copy replaces the local one only when its
// updated-at is strictly newer. The result is a superset of both inputs.
func MergeConversationLists(local, incoming []Conversation) []Conversation {
	merged := make([]Conversation, 0, len(local)+len(incoming))
	byID := make(map[string]int, len(local))
	for _, conv := range local {
		byID[conv.ID] = len(merged)
		merged = append(merged, conv)
	}
	for _, conv := range incoming {
		if i, ok := byID[conv.ID]; ok {
			if conv.UpdatedAt.After(merged[i].UpdatedAt) {
				merged[i] = conv
			}
			continue
		}
		byID[conv.ID] = len(merged)
		merged = append(merged, conv)
	}
	return merged
}

// MergeFolderLists is MergeConversationLists for folders.
func MergeFolderLists(local, incoming []Folder) []Folder {
	merged := make([]Folder, 0, len(local)+len(incoming))
	byID := make(map[string]int, len(local))
	for _, folder := range local {
		byID[folder.ID] = len(merged)
		merged = append(merged, folder)
	}
	for _, folder := range incoming {
		if i, ok := byID[folder.ID]; ok {
			if folder.UpdatedAt.After(merged[i].UpdatedAt) {
				merged[i] = folder
			}
			continue
		}
		byID[folder.ID] = len(merged)
		merged = append(merged, folder)
	}
	return merged
}

// MergeRemoteConversations folds a remote tab's conversation list into the
// store. Conversations this tab explicitly deleted are dropped from the
// incoming list first, so a stale broadcast cannot resurrect them.
func (s *Store) MergeRemoteConversations(incoming []Conversation) {
	s.mutate(func(st *State) {
		kept := incoming[:0:0]
		for _, conv := range incoming {
			if _, deleted := s.deletedConversations[conv.ID]; deleted {
				continue
			}
			kept = append(kept, conv.Clone())
		}
		st.Conversations = MergeConversationLists(st.Conversations, kept)
		revalidateActive(st)
	})
}

// MergeRemoteFolders folds a remote tab's folder list into the store,
// filtering explicit deletions like MergeRemoteConversations.
func (s *Store) MergeRemoteFolders(incoming []Folder) {
	s.mutate(func(st *State) {
		kept := incoming[:0:0]
		for _, folder := range incoming {
			if _, deleted := s.deletedFolders[folder.ID]; deleted {
				continue
			}
			kept = append(kept, folder.Clone())
		}
		st.Folders = MergeFolderLists(st.Folders, kept)
		revalidateActive(st)
	})
}

// RestoredState is what the persistence adapter hands back on startup: the
// trimmed projection read from durable storage.
type RestoredState struct {
	Conversations        []Conversation
	Folders              []Folder
	ActiveConversationID string
	ActiveFolderID       string
	Layout               Layout
}

// MergeRestored merges an asynchronously restored projection into the
// store by id-union: entities created in memory before the restore landed
// are kept, entities only in the projection are added, and for ids on both
// sides the restored copy wins unless it is the conversation a live job is
// streaming into. Active ids prefer the in-memory ones and are
// re-validated; dangling pointers become empty.
func (s *Store) MergeRestored(restored RestoredState) {
	s.mutate(func(st *State) {
		streamingConv := ""
		if st.Job != nil && st.Streaming {
			streamingConv = st.Job.ConversationID
		}

		localConvs := make(map[string]Conversation, len(st.Conversations))
		for _, conv := range st.Conversations {
			localConvs[conv.ID] = conv
		}
		convs := make([]Conversation, 0, len(restored.Conversations)+len(st.Conversations))
		// memory-only entities first: they are this session's newest work
		for _, conv := range st.Conversations {
			if !containsConversation(restored.Conversations, conv.ID) {
				convs = append(convs, conv)
			}
		}
		for _, conv := range restored.Conversations {
			if _, deleted := s.deletedConversations[conv.ID]; deleted {
				continue
			}
			if local, ok := localConvs[conv.ID]; ok && local.ID == streamingConv {
				convs = append(convs, local)
				continue
			}
			convs = append(convs, conv.Clone())
		}
		st.Conversations = convs

		folders := make([]Folder, 0, len(restored.Folders)+len(st.Folders))
		for _, folder := range st.Folders {
			if !containsFolder(restored.Folders, folder.ID) {
				folders = append(folders, folder)
			}
		}
		for _, folder := range restored.Folders {
			if _, deleted := s.deletedFolders[folder.ID]; deleted {
				continue
			}
			folders = append(folders, folder.Clone())
		}
		st.Folders = folders

		if st.ActiveConversationID == "" {
			st.ActiveConversationID = restored.ActiveConversationID
		}
		if st.ActiveFolderID == "" {
			st.ActiveFolderID = restored.ActiveFolderID
		}
		if st.Layout == (Layout{}) {
			st.Layout = restored.Layout
		}
		revalidateActive(st)
	})
}

// revalidateActive clears active pointers that no longer resolve.
func revalidateActive(st *State) {
	if st.ActiveConversationID != "" && findConversation(st, st.ActiveConversationID) == nil {
		st.ActiveConversationID = ""
	}
	if st.ActiveFolderID != "" && findFolder(st, st.ActiveFolderID) == nil {
		st.ActiveFolderID = ""
	}
}

func containsConversation(convs []Conversation, id string) bool {
	for _, conv := range convs {
		if conv.ID == id {
			return true
		}
	}
	return false
}

func containsFolder(folders []Folder, id string) bool {
	for _, folder := range folders {
		if folder.ID == id {
			return true
		}
	}
	return false
}
