package status

import "strings"

// Kind represents job stage
type Kind int

const (
	// Unknown - any free form value not produced by the pipelines
	Unknown Kind = iota
	// Pending - row created, nothing done yet
	Pending
	// ScriptGenerated - intermediate step
	ScriptGenerated
	// Completed - final step
	Completed
	// Failed - final step, keeps the failure message
	Failed
)

const failedPrefix = "error: "

var (
	kindName = map[Kind]string{Pending: "pending", ScriptGenerated: "script_generated",
		Completed: "completed"}
	nameKind = map[string]Kind{"pending": Pending, "script_generated": ScriptGenerated,
		"completed": Completed}
)

// String returns the persisted form of the stage, failed kind has no fixed name
func (k Kind) String() string {
	return kindName[k]
}

// Status is a parsed value of the status column
type Status struct {
	Kind Kind
	// Message keeps failure text for Failed or the raw value for Unknown
	Message string
}

// FailedWith creates failed status
func FailedWith(msg string) Status {
	return Status{Kind: Failed, Message: msg}
}

// String returns the value stored in the status column
func (st Status) String() string {
	switch st.Kind {
	case Failed:
		return failedPrefix + st.Message
	case Unknown:
		return st.Message
	}
	return st.Kind.String()
}

// Final returns true if no more transitions are expected
func (st Status) Final() bool {
	return st.Kind == Completed || st.Kind == Failed
}

// From returns status obj from string
func From(st string) Status {
	if k, ok := nameKind[st]; ok {
		return Status{Kind: k}
	}
	if strings.HasPrefix(st, failedPrefix) {
		return FailedWith(strings.TrimPrefix(st, failedPrefix))
	}
	return Status{Kind: Unknown, Message: st}
}
