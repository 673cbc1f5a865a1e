package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRequest = errors.New("invalid admission request")

// Record is the durable trace of one admitted ingestion.
type Record struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Class      string    `json:"class"`
	SessionID  string    `json:"session_id"`
	AdmittedAt time.Time `json:"admitted_at"`
}

type AdmitRequest struct {
	Source      string
	Class       string
	SessionID   string
	Quota       int
	WindowStart time.Time
	WindowEnd   time.Time
	Now         time.Time
}

func (r AdmitRequest) Validate() error {
	switch {
	case len(strings.TrimSpace(r.Source)) == 0:
		return fmt.Errorf("%w: empty source", ErrInvalidRequest)
	case r.Quota <= 0:
		return fmt.Errorf("%w: quota %d", ErrInvalidRequest, r.Quota)
	case !r.WindowEnd.After(r.WindowStart):
		return fmt.Errorf("%w: empty window", ErrInvalidRequest)
	}
	return nil
}

// NewRecord builds the record an admitted request would write.
func (r AdmitRequest) NewRecord() Record {
	return Record{
		ID:         uuid.New().String(),
		Source:     r.Source,
		Class:      r.Class,
		SessionID:  r.SessionID,
		AdmittedAt: r.Now.UTC(),
	}
}

type Decision struct {
	Admitted  bool
	Used      int
	Remaining int
	Record    *Record
}

// Decide turns the usage counted before the request into a decision.
func Decide(req AdmitRequest, before int) Decision {
	if before >= req.Quota {
		return Decision{
			Admitted:  false,
			Used:      before,
			Remaining: 0,
		}
	}

	rec := req.NewRecord()

	return Decision{
		Admitted:  true,
		Used:      before + 1,
		Remaining: req.Quota - before - 1,
		Record:    &rec,
	}
}

// Ledger stores usage records. Admit counts the source's records inside the
// request window and inserts a new one when under quota, as one atomic step
// per source.
type Ledger interface {
	Admit(ctx context.Context, req AdmitRequest) (Decision, error)
	Count(ctx context.Context, source string, from time.Time, to time.Time) (int, error)
	Close() error
}
