// Package events loads the schedule's event list from its sources: event
// files kept next to the config and subscribed ICS feeds.
package events

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dayschedule/internal/model"
)

// fileDoc is the wrapped form of an event file:
//
//	events:
//	  - eventName: Fest
//	    startDate: 2024-06-20
//	    totalDays: 2
//	    dailySchedule:
//	      - {startTime: "18:00", endTime: "23:00"}
//
// A bare top-level list is accepted as well. JSON files parse the same way.
type fileDoc struct {
	Events []model.Event `yaml:"events"`
}

// LoadFile reads a YAML or JSON event file. Every event gets the file's
// base name as SourceID.
func LoadFile(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("events: read %s: %w", path, err)
	}
	evs, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("events: %s: %w", path, err)
	}
	id := filepath.Base(path)
	for i := range evs {
		evs[i].SourceID = id
	}
	return evs, nil
}

// Decode parses an event document in either accepted form.
func Decode(data []byte) ([]model.Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty event file")
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, errors.New("empty event file")
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var evs []model.Event
		if err := root.Decode(&evs); err != nil {
			return nil, err
		}
		return evs, nil
	case yaml.MappingNode:
		var doc fileDoc
		if err := root.Decode(&doc); err != nil {
			return nil, err
		}
		return doc.Events, nil
	default:
		return nil, errors.New("expected a list of events or an 'events' key")
	}
}
