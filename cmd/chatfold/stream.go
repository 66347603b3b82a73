package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

// readStepEvents parses a recorded backend stream: one JSON step event per
// line, blank lines ignored. The transport that produced the recording is
// not our concern; we only consume what it delivered.
func readStepEvents(fs afero.Fs, path string) ([]state.StepEvent, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var events []state.StepEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var ev state.StepEvent
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return nil, fmt.Errorf("parse step event on line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
