package memory

import (
	"context"
	"sync"
	"time"

	"github.com/w-h-a/doclens/usage"
)

type bucket struct {
	mtx     sync.Mutex
	records []usage.Record
}

type memoryLedger struct {
	options usage.Options
	buckets map[string]*bucket
	mtx     sync.Mutex
}

func (l *memoryLedger) Admit(ctx context.Context, req usage.AdmitRequest) (usage.Decision, error) {
	if err := req.Validate(); err != nil {
		return usage.Decision{}, err
	}

	if err := ctx.Err(); err != nil {
		return usage.Decision{}, err
	}

	b := l.bucket(req.Source)

	b.mtx.Lock()
	defer b.mtx.Unlock()

	decision := usage.Decide(req, count(b.records, req.WindowStart, req.WindowEnd))
	if decision.Admitted {
		b.records = append(b.records, *decision.Record)
	}

	return decision, nil
}

func (l *memoryLedger) Count(ctx context.Context, source string, from time.Time, to time.Time) (int, error) {
	b := l.bucket(source)

	b.mtx.Lock()
	defer b.mtx.Unlock()

	return count(b.records, from, to), nil
}

func (l *memoryLedger) Close() error {
	return nil
}

func (l *memoryLedger) bucket(source string) *bucket {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	b, ok := l.buckets[source]
	if !ok {
		b = &bucket{}
		l.buckets[source] = b
	}

	return b
}

func count(records []usage.Record, from, to time.Time) int {
	n := 0
	for _, rec := range records {
		if !rec.AdmittedAt.Before(from) && rec.AdmittedAt.Before(to) {
			n++
		}
	}
	return n
}

func NewLedger(opts ...usage.Option) usage.Ledger {
	options := usage.NewOptions(opts...)

	return &memoryLedger{
		options: options,
		buckets: map[string]*bucket{},
	}
}
