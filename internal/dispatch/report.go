package dispatch

import (
	"time"

	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

// State is the position of one registration in its delivery.
type State string

const (
	StatePending      State = "PENDING"
	StateRendered     State = "RENDERED"
	StateSent         State = "SENT"
	StateDeleted      State = "DELETED"
	StateRenderFailed State = "RENDER_FAILED"
	StateSendFailed   State = "SEND_FAILED"
	StateDeleteFailed State = "DELETE_FAILED"
)

// Outcome is the terminal result for one registration.
type Outcome struct {
	Registration restock.EmailRegistration
	State        State
	Language     string
	Err          error
	Duration     time.Duration
}

// Report summarises a settled batch.
type Report struct {
	BatchID      string
	Total        int
	Sent         int // delivered, whether or not the delete succeeded
	Deleted      int
	SendFailed   int
	DeleteFailed int
	RenderFailed int
	Duration     time.Duration
	Outcomes     []Outcome
}

func newReport(batchID string, outcomes []Outcome, d time.Duration) Report {
	r := Report{BatchID: batchID, Total: len(outcomes), Duration: d, Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.State {
		case StateDeleted:
			r.Sent++
			r.Deleted++
		case StateDeleteFailed:
			r.Sent++
			r.DeleteFailed++
		case StateSendFailed:
			r.SendFailed++
		case StateRenderFailed:
			r.RenderFailed++
		}
	}
	return r
}
