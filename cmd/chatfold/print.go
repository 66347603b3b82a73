package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/timeline"
)

var (
	roleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	structureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	labelStyle     = lipgloss.NewStyle().Faint(true)
	headerStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
)

func printTimeline(w io.Writer, items []timeline.Item) {
	fmt.Fprintln(w, headerStyle.Render("Timeline"))
	for _, item := range items {
		switch {
		case item.Message != nil:
			fmt.Fprintf(w, "%s %s\n",
				roleStyle.Render("["+string(item.Message.Role)+"]"),
				item.Message.Content)
		case item.Structure != nil:
			line := structureStyle.Render("◆ "+item.Structure.Filename) +
				" " + labelStyle.Render(item.Structure.Label)
			fmt.Fprintln(w, line)
		}
	}
}

func printBlocks(w io.Writer, g timeline.Grouping) {
	if len(g.Blocks) == 0 && len(g.Opening) == 0 && len(g.Closing) == 0 {
		return
	}
	fmt.Fprintln(w, headerStyle.Render("Thinking blocks"))
	for _, ev := range g.Opening {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("open:"), ev.Message)
	}
	for _, block := range g.Blocks {
		suffix := ""
		if block.Structure != nil {
			suffix = " → " + structureStyle.Render(block.Structure.Filename)
		}
		fmt.Fprintf(w, "%s %d events%s\n",
			labelStyle.Render(fmt.Sprintf("block %d:", block.Index)),
			len(block.Events), suffix)
	}
	for _, ev := range g.Closing {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("close:"), ev.Message)
	}
}
