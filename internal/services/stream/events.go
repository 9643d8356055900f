package stream

import (
	"encoding/xml"
	"time"
)

const SchemaVersion = 1

type EventKind string

const (
	EventKindStart   EventKind = "start"
	EventKindItem    EventKind = "item"
	EventKindError   EventKind = "error"
	EventKindWarning EventKind = "warning"
	EventKindSummary EventKind = "summary"
	EventKindDone    EventKind = "done"
)

// Event is one step of a scan as seen by renderers.
type Event struct {
	XMLName   xml.Name  `json:"-" xml:"event"`
	Version   int       `json:"version" xml:"version,attr"`
	Kind      EventKind `json:"kind" xml:"kind,attr"`
	Root      string    `json:"root,omitempty" xml:"root,attr,omitempty"`
	Path      string    `json:"path,omitempty" xml:"path,attr,omitempty"`
	EmittedAt time.Time `json:"emittedAt,omitempty" xml:"emittedAt,attr,omitempty"`

	Item    *ItemEvent    `json:"item,omitempty" xml:"item,omitempty"`
	Summary *SummaryEvent `json:"summary,omitempty" xml:"summary,omitempty"`
	Message *LogEvent     `json:"message,omitempty" xml:"message,omitempty"`
	Err     *ErrorEvent   `json:"error,omitempty" xml:"error,omitempty"`
}

// ItemEvent describes one emitted tree item.
type ItemEvent struct {
	Path         string `json:"path" xml:"path,attr"`
	RelativePath string `json:"relativePath" xml:"relativePath,attr"`
	Name         string `json:"name" xml:"name,attr"`
	Depth        int    `json:"depth" xml:"depth,attr"`
	SizeBytes    int64  `json:"sizeBytes" xml:"sizeBytes,attr"`
	Tokens       int    `json:"tokens,omitempty" xml:"tokens,attr,omitempty"`
	Model        string `json:"model,omitempty" xml:"model,attr,omitempty"`
}

type SummaryEvent struct {
	Files  int    `json:"files" xml:"files,attr"`
	Errors int    `json:"errors" xml:"errors,attr"`
	Bytes  int64  `json:"bytes" xml:"bytes,attr"`
	Tokens int    `json:"tokens,omitempty" xml:"tokens,attr,omitempty"`
	Model  string `json:"model,omitempty" xml:"model,attr,omitempty"`
}

type LogEvent struct {
	Level   string `json:"level,omitempty" xml:"level,attr,omitempty"`
	Message string `json:"message" xml:",chardata"`
}

type ErrorEvent struct {
	Path    string `json:"path,omitempty" xml:"path,attr,omitempty"`
	Message string `json:"message" xml:",chardata"`
}
