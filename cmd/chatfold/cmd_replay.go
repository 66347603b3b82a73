package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
	"github.com/ccsquare/ChatFold-MVP-sub000/src/tabsync"
	"github.com/ccsquare/ChatFold-MVP-sub000/src/timeline"
)

// ReplayCmd feeds a recorded step-event stream into a fresh submission and
// prints the reconciled timeline, exactly what the render layer would see.
type ReplayCmd struct {
	Events   string `arg:"" help:"Stream recording, one JSON step event per line"`
	Sequence string `default:"MQIFVKTLTGKTITLEVEPS" help:"Sequence to attribute the run to"`
	Title    string `default:"replayed run" help:"Conversation title"`
}

func (c *ReplayCmd) Run(cli *CLI) error {
	cfg, err := buildConfig(cli)
	if err != nil {
		return err
	}
	logger := buildLogger(cli)

	store, adapter, db, err := openCore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := adapter.Restore(context.Background()); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	// no sibling tabs in a one-shot CLI run; the channel degrades to a
	// no-op but keeps the boot path identical to the multi-tab one
	ch := tabsync.NewChannel(store, nil, logger, tabsync.WithDebounce(cfg.SyncDebounce))
	defer ch.Close()

	events, err := readStepEvents(appFS, c.Events)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("no step events in %s", c.Events)
	}

	conv := store.CreateConversation(c.Title)
	folder := store.CreateFolder("default", c.Title, conv.ID)
	if err := store.AppendMessage(conv.ID, state.Message{
		Role:    state.RoleUser,
		Content: fmt.Sprintf("Fold this sequence (%d residues).", len(c.Sequence)),
	}); err != nil {
		return err
	}
	job := store.StartJob(conv.ID, folder.ID, c.Sequence)

	for _, ev := range events {
		// the recording's job id belongs to the original run
		ev.JobID = job.ID
		store.AppendStepEvent(ev)
	}

	snap := store.Snapshot()
	printTimeline(os.Stdout, timeline.Reconcile(snap, conv.ID))
	if snap.Job != nil {
		fmt.Println()
		printBlocks(os.Stdout, timeline.Group(snap.Job.Events))
		fmt.Printf("\nJob finished with status %q, %d structures\n",
			snap.Job.Status, len(snap.Job.Structures))
	}
	return nil
}
