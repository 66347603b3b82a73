package state

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Listener observes store transitions. It receives deep copies of the
// previous and next snapshots and runs on the mutating goroutine, after the
// store's lock has been released, so listeners may call back into the
// mutation API.
type Listener func(prev, next State)

// Store is the single in-memory source of truth for conversations, folders
// and the active job. All mutations are atomic: they run under one lock and
// either fully apply or not at all. Nothing outside this API mutates state.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners []Listener
	logger    *slog.Logger

	// ids of entities the user explicitly deleted, recorded before the
	// deleting mutation runs. Consulted by the rehydration guard and the
	// cross-tab merge so neither resurrects an intentional deletion.
	deletedConversations map[string]struct{}
	deletedFolders       map[string]struct{}
}

// NewStore creates an empty store. A nil logger discards.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		logger:               logger,
		deletedConversations: make(map[string]struct{}),
		deletedFolders:       make(map[string]struct{}),
	}
}

// Subscribe registers a transition listener. Not safe to call concurrently
// with mutations; register listeners during setup.
func (s *Store) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// WasDeleted reports whether the conversation was explicitly deleted in
// this session.
func (s *Store) WasDeleted(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.deletedConversations[conversationID]
	return ok
}

// mutate applies fn under the lock and notifies listeners with before/after
// copies. fn must not call back into the store.
func (s *Store) mutate(fn func(st *State)) (State, State) {
	s.mu.Lock()
	prev := s.state.Clone()
	fn(&s.state)
	next := s.state.Clone()
	s.mu.Unlock()
	for _, l := range s.listeners {
		l(prev, next)
	}
	return prev, next
}

// CreateConversation appends a new conversation and makes it active.
func (s *Store) CreateConversation(title string) Conversation {
	conv := Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  []Message{},
	}
	s.mutate(func(st *State) {
		st.Conversations = append(st.Conversations, conv.Clone())
		st.ActiveConversationID = conv.ID
	})
	return conv
}

// CreateFolder appends a new folder, uniquifying its name, and makes it
// active. When conversationID is non-empty and resolves, the folder and
// conversation cross-reference each other.
func (s *Store) CreateFolder(projectID, name, conversationID string) Folder {
	folder := Folder{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Expanded:  true,
	}
	s.mutate(func(st *State) {
		taken := make(map[string]struct{}, len(st.Folders))
		for _, f := range st.Folders {
			taken[f.Name] = struct{}{}
		}
		folder.Name = uniquifyName(name, taken)
		if conversationID != "" {
			if conv := findConversation(st, conversationID); conv != nil {
				folder.ConversationID = conversationID
				conv.FolderID = folder.ID
			} else {
				s.logger.Warn("folder links unknown conversation", "conversation_id", conversationID)
			}
		}
		st.Folders = append(st.Folders, folder.Clone())
		st.ActiveFolderID = folder.ID
	})
	return folder
}

// AppendMessage appends a message to the conversation and bumps its
// updated-at, which is what cross-tab recency merges compare.
func (s *Store) AppendMessage(conversationID string, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	var found bool
	s.mutate(func(st *State) {
		conv := findConversation(st, conversationID)
		if conv == nil {
			return
		}
		found = true
		conv.Messages = append(conv.Messages, msg)
		conv.UpdatedAt = time.Now()
	})
	if !found {
		return fmt.Errorf("append message: no conversation %s", conversationID)
	}
	return nil
}

// RenameFolder renames a folder, uniquifying against its siblings.
func (s *Store) RenameFolder(folderID, name string) error {
	var found bool
	s.mutate(func(st *State) {
		taken := make(map[string]struct{}, len(st.Folders))
		for _, f := range st.Folders {
			if f.ID != folderID {
				taken[f.Name] = struct{}{}
			}
		}
		for i := range st.Folders {
			if st.Folders[i].ID == folderID {
				st.Folders[i].Name = uniquifyName(name, taken)
				st.Folders[i].UpdatedAt = time.Now()
				found = true
				return
			}
		}
	})
	if !found {
		return fmt.Errorf("rename folder: no folder %s", folderID)
	}
	return nil
}

// AddAsset attaches an input asset to a folder, uniquifying its name within
// the folder.
func (s *Store) AddAsset(folderID string, asset Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	if asset.UploadedAt.IsZero() {
		asset.UploadedAt = time.Now()
	}
	var found bool
	s.mutate(func(st *State) {
		for i := range st.Folders {
			if st.Folders[i].ID != folderID {
				continue
			}
			found = true
			taken := make(map[string]struct{}, len(st.Folders[i].Assets))
			for _, a := range st.Folders[i].Assets {
				taken[a.Name] = struct{}{}
			}
			asset.Name = uniquifyName(asset.Name, taken)
			st.Folders[i].Assets = append(st.Folders[i].Assets, asset)
			st.Folders[i].UpdatedAt = time.Now()
			return
		}
	})
	if !found {
		return fmt.Errorf("add asset: no folder %s", folderID)
	}
	return nil
}

// AddOutput appends a structure to a folder's outputs unless one with the
// same id is already there.
func (s *Store) AddOutput(folderID string, structure Structure) error {
	var found bool
	s.mutate(func(st *State) {
		for i := range st.Folders {
			if st.Folders[i].ID != folderID {
				continue
			}
			found = true
			st.Folders[i].Outputs = mergeStructures(st.Folders[i].Outputs, structure)
			st.Folders[i].UpdatedAt = time.Now()
			return
		}
	})
	if !found {
		return fmt.Errorf("add output: no folder %s", folderID)
	}
	return nil
}

// DeleteConversation removes a conversation. The deletion is recorded first
// so the rehydration guard and stale cross-tab broadcasts cannot bring it
// back. The active pointer falls back to the next remaining conversation.
func (s *Store) DeleteConversation(conversationID string) {
	s.mu.Lock()
	s.deletedConversations[conversationID] = struct{}{}
	s.mu.Unlock()
	s.mutate(func(st *State) {
		idx := -1
		for i := range st.Conversations {
			if st.Conversations[i].ID == conversationID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		folderID := st.Conversations[idx].FolderID
		st.Conversations = append(st.Conversations[:idx], st.Conversations[idx+1:]...)
		if folderID != "" {
			for i := range st.Folders {
				if st.Folders[i].ID == folderID {
					st.Folders[i].ConversationID = ""
				}
			}
		}
		if st.ActiveConversationID == conversationID {
			st.ActiveConversationID = ""
			if len(st.Conversations) > 0 {
				next := idx
				if next >= len(st.Conversations) {
					next = len(st.Conversations) - 1
				}
				st.ActiveConversationID = st.Conversations[next].ID
			}
		}
	})
}

// DeleteFolder removes a folder and unlinks its conversation.
func (s *Store) DeleteFolder(folderID string) {
	s.mu.Lock()
	s.deletedFolders[folderID] = struct{}{}
	s.mu.Unlock()
	s.mutate(func(st *State) {
		idx := -1
		for i := range st.Folders {
			if st.Folders[i].ID == folderID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		convID := st.Folders[idx].ConversationID
		st.Folders = append(st.Folders[:idx], st.Folders[idx+1:]...)
		if convID != "" {
			if conv := findConversation(st, convID); conv != nil {
				conv.FolderID = ""
			}
		}
		if st.ActiveFolderID == folderID {
			st.ActiveFolderID = ""
			if len(st.Folders) > 0 {
				next := idx
				if next >= len(st.Folders) {
					next = len(st.Folders) - 1
				}
				st.ActiveFolderID = st.Folders[next].ID
			}
		}
	})
}

// SetActiveConversation points the active conversation at an existing
// entity. A dangling id is coerced to empty instead of failing.
func (s *Store) SetActiveConversation(conversationID string) {
	s.mutate(func(st *State) {
		if conversationID != "" && findConversation(st, conversationID) == nil {
			s.logger.Debug("active conversation id does not resolve, clearing", "id", conversationID)
			conversationID = ""
		}
		st.ActiveConversationID = conversationID
	})
}

// SetActiveFolder points the active folder at an existing entity. A
// dangling id is coerced to empty instead of failing.
func (s *Store) SetActiveFolder(folderID string) {
	s.mutate(func(st *State) {
		if folderID != "" && findFolder(st, folderID) == nil {
			s.logger.Debug("active folder id does not resolve, clearing", "id", folderID)
			folderID = ""
		}
		st.ActiveFolderID = folderID
	})
}

// SetLayout replaces the layout sizing.
func (s *Store) SetLayout(layout Layout) {
	s.mutate(func(st *State) {
		st.Layout = layout
	})
}

// StartJob creates a queued job for the conversation, associates it with
// the folder and raises the streaming flag. Any previous job is discarded.
func (s *Store) StartJob(conversationID, folderID, sequence string) Job {
	job := Job{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Status:         JobQueued,
		Sequence:       sequence,
		CreatedAt:      time.Now(),
		Events:         []StepEvent{},
		Structures:     []Structure{},
	}
	s.mutate(func(st *State) {
		st.Job = job.Clone()
		st.Streaming = true
		for i := range st.Folders {
			if st.Folders[i].ID == folderID {
				st.Folders[i].JobID = job.ID
				st.Folders[i].UpdatedAt = time.Now()
			}
		}
	})
	return job
}

// AppendStepEvent folds one backend step event into the active job. It is
// idempotent under at-least-once delivery: a replayed event id is dropped
// wholesale, and structure merges deduplicate by id, so redelivery never
// double-counts. Terminal stages fix the job status, stop streaming and
// promote the job's structures into the owning conversation exactly once.
func (s *Store) AppendStepEvent(ev StepEvent) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	s.mutate(func(st *State) {
		job := st.Job
		if job == nil || job.ID != ev.JobID {
			s.logger.Debug("step event for unknown job, dropping", "job_id", ev.JobID)
			return
		}
		if job.Status.Terminal() {
			return
		}
		for _, seen := range job.Events {
			if seen.ID == ev.ID {
				return
			}
		}
		job.Events = append(job.Events, ev)
		if job.Status == JobQueued {
			job.Status = JobRunning
		}

		var fresh []Structure
		for _, structure := range ev.Structures {
			before := len(job.Structures)
			job.Structures = mergeStructures(job.Structures, structure)
			if len(job.Structures) > before {
				fresh = append(fresh, structure)
			}
		}

		// Mirror newly seen structures into the active folder's outputs
		// when that folder is the one this job runs for, so they show up
		// immediately and survive job teardown.
		if len(fresh) > 0 && st.ActiveFolderID != "" {
			for i := range st.Folders {
				if st.Folders[i].ID == st.ActiveFolderID && st.Folders[i].JobID == job.ID {
					for _, structure := range fresh {
						st.Folders[i].Outputs = mergeStructures(st.Folders[i].Outputs, structure)
					}
					st.Folders[i].UpdatedAt = time.Now()
				}
			}
		}

		if TerminalStage(ev.Stage) {
			job.CompletedAt = time.Now()
			switch {
			case ev.Stage == StageError:
				job.Status = JobFailed
			case strings.EqualFold(ev.Status, "partial"):
				job.Status = JobPartial
			default:
				job.Status = JobComplete
			}
			st.Streaming = false
			if job.Status == JobComplete || job.Status == JobPartial {
				promoteJob(st, job, ev.Message)
			}
		}
	})
}

// CancelJob marks the active job canceled and stops streaming. Further
// step events for it are ignored.
func (s *Store) CancelJob(jobID string) {
	s.mutate(func(st *State) {
		if st.Job == nil || st.Job.ID != jobID || st.Job.Status.Terminal() {
			return
		}
		st.Job.Status = JobCanceled
		st.Job.CompletedAt = time.Now()
		st.Streaming = false
	})
}

// ClearJob discards a terminal job. Its structures live on in the folder
// outputs and the promoted conversation message.
func (s *Store) ClearJob() {
	s.mutate(func(st *State) {
		if st.Job == nil || !st.Job.Status.Terminal() {
			return
		}
		st.Job = nil
		st.Streaming = false
	})
}

// AdoptJob replaces the local job with a remote tab's snapshot, unless this
// tab is streaming a job of its own. Returns whether it applied.
func (s *Store) AdoptJob(job *Job) bool {
	var applied bool
	s.mutate(func(st *State) {
		if st.Streaming {
			return
		}
		applied = true
		st.Job = job.Clone()
		st.Streaming = job != nil && !job.Status.Terminal()
	})
	return applied
}

// ReinsertConversations puts conversations back at the head of the list.
// Used by the rehydration guard; explicitly deleted or already present ids
// are skipped.
func (s *Store) ReinsertConversations(convs []Conversation) {
	if len(convs) == 0 {
		return
	}
	s.mutate(func(st *State) {
		var restore []Conversation
		for _, conv := range convs {
			if _, deleted := s.deletedConversations[conv.ID]; deleted {
				continue
			}
			if findConversation(st, conv.ID) != nil {
				continue
			}
			restore = append(restore, conv.Clone())
		}
		if len(restore) > 0 {
			st.Conversations = append(restore, st.Conversations...)
		}
	})
}

// promoteJob folds a finished job's structures into the owning conversation
// as an assistant message. Runs once per job: it is only reachable on the
// running->terminal transition.
func promoteJob(st *State, job *Job, closing string) {
	conv := findConversation(st, job.ConversationID)
	if conv == nil {
		return
	}
	if closing == "" {
		closing = "Prediction complete."
	}
	conv.Messages = append(conv.Messages, Message{
		ID:         uuid.New().String(),
		Role:       RoleAssistant,
		Content:    closing,
		CreatedAt:  time.Now(),
		Structures: cloneStructures(job.Structures),
	})
	conv.UpdatedAt = time.Now()
}

// mergeStructures appends the structure unless one with the same id exists.
// First seen wins: a later copy never overwrites metadata.
func mergeStructures(existing []Structure, structure Structure) []Structure {
	for _, have := range existing {
		if have.ID == structure.ID {
			return existing
		}
	}
	return append(existing, structure)
}

func findConversation(st *State, id string) *Conversation {
	for i := range st.Conversations {
		if st.Conversations[i].ID == id {
			return &st.Conversations[i]
		}
	}
	return nil
}

func findFolder(st *State, id string) *Folder {
	for i := range st.Folders {
		if st.Folders[i].ID == id {
			return &st.Folders[i]
		}
	}
	return nil
}

// uniquifyName appends " (2)", " (3)", ... until the name is free.
func uniquifyName(name string, taken map[string]struct{}) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
