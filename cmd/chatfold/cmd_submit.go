package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

// SubmitCmd creates a folder and conversation from a sequence file, the
// same way the first user submission does in the app.
type SubmitCmd struct {
	File  string `arg:"" help:"FASTA or plain sequence file"`
	Title string `help:"Conversation title (defaults to the file name)"`
}

func (c *SubmitCmd) Run(cli *CLI) error {
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

	raw, err := afero.ReadFile(appFS, c.File)
	if err != nil {
		return fmt.Errorf("read sequence file: %w", err)
	}
	sequence := parseSequence(string(raw))
	if sequence == "" {
		return fmt.Errorf("no sequence found in %s", c.File)
	}

	title := c.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(c.File), filepath.Ext(c.File))
	}

	conv := store.CreateConversation(title)
	folder := store.CreateFolder("default", title, conv.ID)
	if err := store.AddAsset(folder.ID, state.Asset{
		Name:    filepath.Base(c.File),
		Kind:    state.AssetSequence,
		Content: sequence,
	}); err != nil {
		return err
	}
	if err := store.AppendMessage(conv.ID, state.Message{
		Role:    state.RoleUser,
		Content: fmt.Sprintf("Fold this sequence (%d residues).", len(sequence)),
		Files:   []state.FileRef{{Name: filepath.Base(c.File), Size: int64(len(raw)), Kind: "sequence"}},
	}); err != nil {
		return err
	}

	fmt.Printf("Created conversation %s with folder %q (%d residue sequence)\n",
		conv.ID, folder.Name, len(sequence))
	return nil
}

// parseSequence strips FASTA headers and whitespace. No residue validation
// happens here; the backend owns that.
func parseSequence(raw string) string {
	var b strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") || strings.HasPrefix(line, ";") {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}
