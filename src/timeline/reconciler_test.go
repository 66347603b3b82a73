package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

func at(sec int) time.Time { return time.Unix(1700000000+int64(sec), 0) }

func structureIDs(items []Item) []string {
	var ids []string
	for _, item := range items {
		if item.Structure != nil {
			ids = append(ids, item.Structure.ID)
		}
	}
	return ids
}

func TestReconcileUnknownConversation(t *testing.T) {
	assert.Nil(t, Reconcile(state.State{}, "missing"))
}

func TestReconcileDeduplicatesAcrossSources(t *testing.T) {
	// the same structure "A" arrives from the live job, an old message and
	// the folder outputs; it must appear exactly once, with the metadata
	// of the first source that produced it
	st := state.State{
		Conversations: []state.Conversation{{
			ID: "c1", FolderID: "f1",
			Messages: []state.Message{
				{ID: "m1", Role: state.RoleUser, Content: "fold", CreatedAt: at(0)},
				{ID: "m2", Role: state.RoleAssistant, Content: "done", CreatedAt: at(10),
					Structures: []state.Structure{{ID: "A", Label: "from-message"}}},
			},
		}},
		Folders: []state.Folder{{
			ID: "f1", UpdatedAt: at(20),
			Outputs: []state.Structure{{ID: "A", Label: "from-folder"}, {ID: "B", Label: "final"}},
		}},
		Job: &state.Job{
			ID: "j1", ConversationID: "c1", Status: state.JobRunning,
			Events: []state.StepEvent{{
				ID: "e1", JobID: "j1", Timestamp: at(15), Stage: state.StageModel,
				Structures: []state.Structure{{ID: "A", Label: "from-job"}},
			}},
		},
		Streaming: true,
	}

	items := Reconcile(st, "c1")
	assert.Equal(t, []string{"A", "B"}, structureIDs(items))

	for _, item := range items {
		if item.Structure != nil && item.Structure.ID == "A" {
			assert.Equal(t, "from-job", item.Structure.Label, "live job has dedup priority")
		}
	}
}

func TestReconcileClockSkewCorrection(t *testing.T) {
	// backend clock runs 30s behind the browser clock: the step event
	// timestamp precedes the user message that triggered it
	st := state.State{
		Conversations: []state.Conversation{{
			ID: "c1",
			Messages: []state.Message{
				{ID: "m1", Role: state.RoleUser, Content: "fold", CreatedAt: at(100)},
			},
		}},
		Job: &state.Job{
			ID: "j1", ConversationID: "c1", Status: state.JobRunning,
			Events: []state.StepEvent{{
				ID: "e1", JobID: "j1", Timestamp: at(70), Stage: state.StageModel,
				Structures: []state.Structure{{ID: "A"}},
			}},
		},
		Streaming: true,
	}

	items := Reconcile(st, "c1")
	require.Len(t, items, 2)
	assert.NotNil(t, items[0].Message, "user message first")
	assert.NotNil(t, items[1].Structure, "streamed structure after it")
	assert.False(t, items[1].Timestamp.Before(items[0].Timestamp))
}

func TestReconcileSortedAndSkewClamped(t *testing.T) {
	st := state.State{
		Conversations: []state.Conversation{{
			ID: "c1", FolderID: "f1",
			Messages: []state.Message{
				{ID: "m1", Role: state.RoleUser, CreatedAt: at(0)},
				{ID: "m2", Role: state.RoleUser, CreatedAt: at(50)},
			},
		}},
		Folders: []state.Folder{{
			ID: "f1", UpdatedAt: at(20), // folder clock behind the last message
			Outputs: []state.Structure{{ID: "B"}},
		}},
	}

	items := Reconcile(st, "c1")
	require.Len(t, items, 3)

	var latestMessage time.Time
	for _, item := range items {
		if item.Message != nil {
			latestMessage = item.Timestamp
			continue
		}
		assert.False(t, item.Timestamp.Before(latestMessage),
			"structure item sorts after the latest preceding message")
	}
	assert.NotNil(t, items[2].Structure, "clamped folder output lands last")
}

func TestReconcileMessageStructurePlacement(t *testing.T) {
	// without an explicit creation time, a message-embedded structure sits
	// immediately before its owning message
	st := state.State{
		Conversations: []state.Conversation{{
			ID: "c1",
			Messages: []state.Message{
				{ID: "m1", Role: state.RoleUser, CreatedAt: at(0)},
				{ID: "m2", Role: state.RoleAssistant, CreatedAt: at(10),
					Structures: []state.Structure{{ID: "A"}}},
			},
		}},
	}

	items := Reconcile(st, "c1")
	require.Len(t, items, 3)
	assert.NotNil(t, items[0].Message)
	require.NotNil(t, items[1].Structure)
	assert.Equal(t, "A", items[1].Structure.ID)
	assert.Equal(t, "m2", items[2].Message.ID)
}

func TestReconcileExplicitStructureTime(t *testing.T) {
	st := state.State{
		Conversations: []state.Conversation{{
			ID: "c1",
			Messages: []state.Message{
				{ID: "m1", Role: state.RoleAssistant, CreatedAt: at(10),
					Structures: []state.Structure{{ID: "A", CreatedAt: at(3)}}},
			},
		}},
	}

	items := Reconcile(st, "c1")
	require.Len(t, items, 2)
	assert.Equal(t, at(3), items[0].Timestamp)
	assert.NotNil(t, items[0].Structure)
}

func TestReconcileIgnoresForeignJob(t *testing.T) {
	st := state.State{
		Conversations: []state.Conversation{{ID: "c1"}, {ID: "c2"}},
		Job: &state.Job{
			ID: "j1", ConversationID: "c2", Status: state.JobRunning,
			Events: []state.StepEvent{{
				ID: "e1", JobID: "j1", Timestamp: at(5), Stage: state.StageModel,
				Structures: []state.Structure{{ID: "X"}},
			}},
		},
	}

	assert.Empty(t, Reconcile(st, "c1"), "another conversation's stream is invisible")
}

func TestReconcileFolderFallbackAfterReload(t *testing.T) {
	// after a reload the job object is gone; the folder outputs are the
	// only source left for streamed structures
	st := state.State{
		Conversations: []state.Conversation{{
			ID: "c1", FolderID: "f1",
			Messages: []state.Message{{ID: "m1", Role: state.RoleUser, CreatedAt: at(0)}},
		}},
		Folders: []state.Folder{{
			ID: "f1", UpdatedAt: at(30),
			Outputs: []state.Structure{{ID: "A", Label: "final"}},
		}},
	}

	items := Reconcile(st, "c1")
	assert.Equal(t, []string{"A"}, structureIDs(items))
}
