package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/w-h-a/doclens/internal/service"
	"github.com/w-h-a/doclens/internal/service/session"
	"github.com/w-h-a/doclens/usage"
)

type Decision struct {
	Admitted  bool          `json:"admitted"`
	Class     session.Class `json:"caller_class"`
	Quota     int           `json:"quota"`
	Used      int           `json:"used"`
	Remaining int           `json:"remaining_quota"`
	Unlimited bool          `json:"unlimited"`
	RecordID  string        `json:"-"`
}

type Service struct {
	options Options
	ledger  usage.Ledger
}

// TryAdmit consumes one unit of the caller's daily quota. The check and the
// usage record happen atomically in the ledger. A denial is returned as
// service.ErrQuotaExceeded together with the decision.
func (s *Service) TryAdmit(ctx context.Context, caller service.Caller, sessionID string) (Decision, error) {
	class := caller.Class()
	quota := s.options.Quotas[class]

	if quota <= 0 {
		s.options.Metrics.Admission(string(class), true)
		return unlimited(class), nil
	}

	now := s.options.Clock().UTC()
	start, end := Window(now)

	d, err := s.ledger.Admit(ctx, usage.AdmitRequest{
		Source:      caller.Source(),
		Class:       string(class),
		SessionID:   sessionID,
		Quota:       quota,
		WindowStart: start,
		WindowEnd:   end,
		Now:         now,
	})
	if err != nil {
		return Decision{}, service.NewError(service.ErrInternal, "admission failed", err)
	}

	s.options.Metrics.Admission(string(class), d.Admitted)

	decision := Decision{
		Admitted:  d.Admitted,
		Class:     class,
		Quota:     quota,
		Used:      d.Used,
		Remaining: d.Remaining,
	}

	if !d.Admitted {
		s.options.Logger.InfoContext(ctx, "admission denied", "class", class, "source", caller.Source(), "used", d.Used, "quota", quota)
		msg := fmt.Sprintf("daily limit of %d uploads reached", quota)
		if class == session.ClassGuest {
			msg += "; sign in to continue"
		}
		return decision, service.NewError(service.ErrQuotaExceeded, msg, nil)
	}

	decision.RecordID = d.Record.ID

	return decision, nil
}

// Remaining reports today's usage without consuming quota.
func (s *Service) Remaining(ctx context.Context, caller service.Caller) (Decision, error) {
	class := caller.Class()
	quota := s.options.Quotas[class]

	if quota <= 0 {
		return unlimited(class), nil
	}

	start, end := Window(s.options.Clock().UTC())

	used, err := s.ledger.Count(ctx, caller.Source(), start, end)
	if err != nil {
		return Decision{}, service.NewError(service.ErrInternal, "usage lookup failed", err)
	}

	return Decision{
		Admitted:  used < quota,
		Class:     class,
		Quota:     quota,
		Used:      used,
		Remaining: max(quota-used, 0),
	}, nil
}

// Window returns the UTC calendar day containing now.
func Window(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func unlimited(class session.Class) Decision {
	return Decision{
		Admitted:  true,
		Class:     class,
		Remaining: -1,
		Unlimited: true,
	}
}

func New(ledger usage.Ledger, opts ...Option) *Service {
	options := NewOptions(opts...)

	return &Service{
		options: options,
		ledger:  ledger,
	}
}
