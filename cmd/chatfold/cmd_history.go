package main

import (
	"context"
	"fmt"
)

// HistoryCmd lists conversations from the write-through history tables,
// without loading the full snapshot.
type HistoryCmd struct{}

func (c *HistoryCmd) Run(cli *CLI) error {
	cfg, err := buildConfig(cli)
	if err != nil {
		return err
	}
	logger := buildLogger(cli)

	_, adapter, db, err := openCore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := adapter.ListConversations(context.Background())
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	for _, row := range rows {
		fmt.Printf("%s  %-30s  %3d messages  %s\n",
			row.ID[:8], row.Title, row.MessageCount, row.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
