package timeline

import (
	"sort"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

// Class is the semantic role of a step event in the rendered transcript.
type Class string

const (
	ClassOpening            Class = "opening"
	ClassNarration          Class = "narration"
	ClassNarrationStructure Class = "narration_structure"
	ClassClosing            Class = "closing"
	ClassLegacy             Class = "legacy_unsplit"
)

// Classify maps a step event to its semantic role. Events from current
// backends carry an explicit type; older streams are classified from the
// stage and payload, and narration without a block index is the legacy
// unsplit kind.
func Classify(ev state.StepEvent) Class {
	switch ev.Type {
	case state.EventOpening:
		return ClassOpening
	case state.EventNarration:
		return ClassNarration
	case state.EventNarrationStructure:
		return ClassNarrationStructure
	case state.EventClosing:
		return ClassClosing
	case state.EventUnsplit:
		return ClassLegacy
	}
	switch {
	case ev.Stage == state.StageQueued:
		return ClassOpening
	case state.TerminalStage(ev.Stage):
		return ClassClosing
	case len(ev.Structures) > 0:
		return ClassNarrationStructure
	case ev.BlockIndex != nil:
		return ClassNarration
	}
	return ClassLegacy
}

// ThinkingBlock is a contiguous group of narration events sharing a block
// index, optionally terminated by the one structure-bearing event in it.
type ThinkingBlock struct {
	Index     int
	Events    []state.StepEvent
	Structure *state.Structure
}

// Grouping is the classified view of a job's event stream.
type Grouping struct {
	Opening []state.StepEvent
	Blocks  []ThinkingBlock
	Closing []state.StepEvent
	Legacy  []state.StepEvent
}

// Group classifies a job's events and assembles the thinking blocks,
// ordered by block index. Narration-class events without a block index go
// to Legacy. Purely derivational; the input is not modified.
func Group(events []state.StepEvent) Grouping {
	var g Grouping
	blocks := make(map[int]*ThinkingBlock)

	for _, ev := range events {
		switch Classify(ev) {
		case ClassOpening:
			g.Opening = append(g.Opening, ev)
		case ClassClosing:
			g.Closing = append(g.Closing, ev)
		case ClassNarration, ClassNarrationStructure:
			if ev.BlockIndex == nil {
				g.Legacy = append(g.Legacy, ev)
				continue
			}
			idx := *ev.BlockIndex
			block, ok := blocks[idx]
			if !ok {
				block = &ThinkingBlock{Index: idx}
				blocks[idx] = block
			}
			block.Events = append(block.Events, ev)
			if block.Structure == nil && len(ev.Structures) > 0 {
				block.Structure = &ev.Structures[0]
			}
		default:
			g.Legacy = append(g.Legacy, ev)
		}
	}

	g.Blocks = make([]ThinkingBlock, 0, len(blocks))
	for _, block := range blocks {
		g.Blocks = append(g.Blocks, *block)
	}
	sort.Slice(g.Blocks, func(i, j int) bool { return g.Blocks[i].Index < g.Blocks[j].Index })
	return g
}
