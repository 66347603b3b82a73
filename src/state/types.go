package state

import "time"

// Role identifies who produced a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// AssetKind classifies a folder input.
type AssetKind string

const (
	AssetSequence  AssetKind = "sequence"
	AssetStructure AssetKind = "structure"
	AssetText      AssetKind = "text"
)

// JobStatus follows queued -> running -> {partial|complete|failed|canceled}.
type JobStatus string

const (
	JobQueued   JobStatus = "queued"
	JobRunning  JobStatus = "running"
	JobPartial  JobStatus = "partial"
	JobComplete JobStatus = "complete"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobPartial, JobComplete, JobFailed, JobCanceled:
		return true
	}
	return false
}

// Pipeline stages reported by the backend on each step event.
const (
	StageQueued = "QUEUED"
	StageMSA    = "MSA"
	StageModel  = "MODEL"
	StageRelax  = "RELAX"
	StageDone   = "DONE"
	StageError  = "ERROR"
)

// TerminalStage reports whether a stage ends the job.
func TerminalStage(stage string) bool {
	return stage == StageDone || stage == StageError
}

// EventType is the backend's tag on a step event. Older backends omit it;
// the timeline grouper falls back to stage/payload heuristics then.
type EventType string

const (
	EventOpening            EventType = "opening_remarks"
	EventNarration          EventType = "narration"
	EventNarrationStructure EventType = "narration_structure"
	EventClosing            EventType = "closing_remarks"
	EventUnsplit            EventType = "unsplit_narration"
)

// Structure is a generated result (a predicted molecular structure). The id
// is the unit of identity and deduplication everywhere: a structure seen
// from a live job, an old message and a folder's outputs is one structure.
type Structure struct {
	ID        string    `json:"id" db:"id"`
	Label     string    `json:"label" db:"label"` // candidate|intermediate|final|free text
	Filename  string    `json:"filename" db:"filename"`
	PDB       string    `json:"pdb,omitempty" db:"pdb"` // heavy payload, stripped from snapshots
	Thumbnail string    `json:"thumbnail,omitempty" db:"thumbnail"`
	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
	Narration string    `json:"narration,omitempty" db:"narration"`
}

// FileRef describes a file the user attached to a message.
type FileRef struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Kind string `json:"kind,omitempty"`
}

// Message is immutable once appended.
type Message struct {
	ID         string      `json:"id" db:"id"`
	Role       Role        `json:"role" db:"role"`
	Content    string      `json:"content" db:"content"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	Structures []Structure `json:"structures,omitempty"`
	Files      []FileRef   `json:"files,omitempty"`
}

type Conversation struct {
	ID        string    `json:"id" db:"id"`
	FolderID  string    `json:"folder_id,omitempty" db:"folder_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Messages  []Message `json:"messages"`
}

type Asset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       AssetKind `json:"kind"`
	Content    string    `json:"content,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Folder holds a submission's inputs and outputs, 1:1 with a conversation.
type Folder struct {
	ID             string      `json:"id"`
	ProjectID      string      `json:"project_id"`
	Name           string      `json:"name"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Expanded       bool        `json:"expanded"`
	Assets         []Asset     `json:"assets,omitempty"`
	Outputs        []Structure `json:"outputs,omitempty"`
	JobID          string      `json:"job_id,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
}

// StepEvent is one incremental message from a running job. Timestamps are
// backend clock, not ours.
type StepEvent struct {
	ID         string      `json:"id"`
	JobID      string      `json:"job_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       EventType   `json:"type,omitempty"`
	Stage      string      `json:"stage"`
	Status     string      `json:"status,omitempty"`
	Progress   int         `json:"progress"` // 0-100
	Message    string      `json:"message,omitempty"`
	BlockIndex *int        `json:"block_index,omitempty"`
	Structures []Structure `json:"structures,omitempty"`
}

// Job is the in-flight backend run. Never persisted; cleared once terminal.
type Job struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Status         JobStatus   `json:"status"`
	Sequence       string      `json:"sequence"`
	CreatedAt      time.Time   `json:"created_at"`
	CompletedAt    time.Time   `json:"completed_at,omitempty"`
	Events         []StepEvent `json:"events"`
	Structures     []Structure `json:"structures"`
}

// Layout carries UI sizing. Mode is never persisted.
type Layout struct {
	SidebarWidth int    `json:"sidebar_width"`
	ViewerHeight int    `json:"viewer_height"`
	Mode         string `json:"mode,omitempty"`
}

// State is a full snapshot of the store. Snapshots handed to listeners and
// returned by Snapshot() are deep copies; mutating them has no effect.
type State struct {
	Conversations        []Conversation `json:"conversations"`
	Folders              []Folder       `json:"folders"`
	Job                  *Job           `json:"job,omitempty"`
	Streaming            bool           `json:"streaming"`
	ActiveConversationID string         `json:"active_conversation_id,omitempty"`
	ActiveFolderID       string         `json:"active_folder_id,omitempty"`
	Layout               Layout         `json:"layout"`
}
