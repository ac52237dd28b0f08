package analysis

import "time"

type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateInProgress State = "IN_PROGRESS"
	StateComplete   State = "COMPLETE"
	StateFailed     State = "FAILED"
)

// Terminal reports whether pollers can stop waiting.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Startable reports whether a new job may move the document to IN_PROGRESS.
func (s State) Startable() bool {
	return s == StateNotStarted || s == StateFailed
}

// Status is the persisted lifecycle row of a document's analysis.
type Status struct {
	DocumentID int64
	State      State
	Attempts   int
	Error      string
	StartedAt  *time.Time
	FinishedAt *time.Time
	UpdatedAt  time.Time
}

// View is what pollers and the chat context see. Result is set only when
// State is COMPLETE.
type View struct {
	DocumentID int64
	State      State
	Attempts   int
	Error      string
	Result     *Result
}

func ViewOf(documentID int64, st *Status) View {
	if st == nil {
		return View{DocumentID: documentID, State: StateNotStarted}
	}
	return View{
		DocumentID: documentID,
		State:      st.State,
		Attempts:   st.Attempts,
		Error:      st.Error,
	}
}
