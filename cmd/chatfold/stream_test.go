package main

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

func TestReadStepEvents(t *testing.T) {
	fs := afero.NewMemMapFs()
	recording := `{"id":"e1","stage":"QUEUED","progress":0,"message":"queued"}

{"id":"e2","stage":"MODEL","progress":60,"block_index":0,"structures":[{"id":"A","label":"candidate","filename":"a.pdb"}]}
{"id":"e3","stage":"DONE","progress":100}
`
	require.NoError(t, afero.WriteFile(fs, "/run.ndjson", []byte(recording), 0644))

	events, err := readStepEvents(fs, "/run.ndjson")
	require.NoError(t, err)
	require.Len(t, events, 3, "blank lines are skipped")

	assert.Equal(t, state.StageQueued, events[0].Stage)
	require.NotNil(t, events[1].BlockIndex)
	assert.Equal(t, 0, *events[1].BlockIndex)
	require.Len(t, events[1].Structures, 1)
	assert.Equal(t, "A", events[1].Structures[0].ID)
	assert.Equal(t, state.StageDone, events[2].Stage)
}

func TestReadStepEventsBadLine(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.ndjson", []byte("{not json}\n"), 0644))

	_, err := readStepEvents(fs, "/bad.ndjson")
	assert.ErrorContains(t, err, "line 1")
}

func TestParseSequence(t *testing.T) {
	raw := ">sp|P0CG48|UBC_HUMAN Polyubiquitin-C\nMQIFVKTLTG\nKTITLEVEPS\n"
	assert.Equal(t, "MQIFVKTLTGKTITLEVEPS", parseSequence(raw))

	assert.Empty(t, parseSequence(">header only\n"))
	assert.Equal(t, "ACDE", parseSequence("  ACDE  \n"))
}
