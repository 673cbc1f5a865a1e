package admission

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/internal/service"
	"github.com/w-h-a/doclens/internal/service/session"
	"github.com/w-h-a/doclens/usage"
	"github.com/w-h-a/doclens/usage/memory"
	"github.com/w-h-a/doclens/usage/sqlite"
)

var noon = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestWindow(t *testing.T) {
	start, end := Window(time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), end)

	// 20:00 in UTC-5 is already the next UTC day
	est := time.FixedZone("EST", -5*3600)
	start, _ = Window(time.Date(2024, 3, 1, 20, 0, 0, 0, est))
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), start)
}

func TestTryAdmit_GuestQuota(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	svc := New(ledger, WithClock(fixed(noon)))
	guest := service.Caller{Address: "203.0.113.5"}

	d, err := svc.TryAdmit(ctx, guest, "s-1")
	require.NoError(t, err)
	assert.True(t, d.Admitted)
	assert.Equal(t, session.ClassGuest, d.Class)
	assert.Equal(t, 1, d.Remaining)
	assert.NotEmpty(t, d.RecordID)

	d, err = svc.TryAdmit(ctx, guest, "s-2")
	require.NoError(t, err)
	assert.Equal(t, 0, d.Remaining)

	d, err = svc.TryAdmit(ctx, guest, "s-3")
	require.ErrorIs(t, err, service.ErrQuotaExceeded)
	assert.False(t, d.Admitted)
	assert.Contains(t, service.Message(err), "sign in")

	start, end := Window(noon)
	n, err := ledger.Count(ctx, guest.Source(), start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTryAdmit_NextDayResets(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	guest := service.Caller{Address: "203.0.113.5"}

	today := New(ledger, WithClock(fixed(noon)), WithQuota(session.ClassGuest, 1))
	_, err := today.TryAdmit(ctx, guest, "s-1")
	require.NoError(t, err)
	_, err = today.TryAdmit(ctx, guest, "s-2")
	require.ErrorIs(t, err, service.ErrQuotaExceeded)

	tomorrow := New(ledger, WithClock(fixed(noon.Add(24*time.Hour))), WithQuota(session.ClassGuest, 1))
	d, err := tomorrow.TryAdmit(ctx, guest, "s-3")
	require.NoError(t, err)
	assert.True(t, d.Admitted)
}

func TestTryAdmit_MembersUnlimitedByDefault(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	svc := New(ledger, WithClock(fixed(noon)))
	member := service.Caller{AccountID: "acct-9", Address: "203.0.113.5"}

	for i := 0; i < 5; i++ {
		d, err := svc.TryAdmit(ctx, member, "s")
		require.NoError(t, err)
		assert.True(t, d.Unlimited)
		assert.Equal(t, -1, d.Remaining)
	}

	start, end := Window(noon)
	n, err := ledger.Count(ctx, member.Source(), start, end)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTryAdmit_LimitedMembersCountByAccount(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewLedger(), WithClock(fixed(noon)), WithQuota(session.ClassMember, 1))

	first := service.Caller{AccountID: "acct-1", Address: "203.0.113.5"}
	second := service.Caller{AccountID: "acct-2", Address: "203.0.113.5"}

	_, err := svc.TryAdmit(ctx, first, "s-1")
	require.NoError(t, err)
	_, err = svc.TryAdmit(ctx, second, "s-2")
	require.NoError(t, err)

	_, err = svc.TryAdmit(ctx, first, "s-3")
	require.ErrorIs(t, err, service.ErrQuotaExceeded)
	assert.NotContains(t, service.Message(err), "sign in")
}

func TestRemaining(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.NewLedger(), WithClock(fixed(noon)))
	guest := service.Caller{Address: "203.0.113.5"}

	d, err := svc.Remaining(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Remaining)

	_, err = svc.TryAdmit(ctx, guest, "s-1")
	require.NoError(t, err)

	d, err = svc.Remaining(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, 1, d.Used)

	d, err = svc.Remaining(ctx, service.Caller{AccountID: "acct"})
	require.NoError(t, err)
	assert.True(t, d.Unlimited)
}

func TestTryAdmit_ConcurrentCallersGetExactlyQuota(t *testing.T) {
	ledgers := map[string]func(t *testing.T) usage.Ledger{
		"memory": func(t *testing.T) usage.Ledger { return memory.NewLedger() },
		"sqlite": func(t *testing.T) usage.Ledger {
			return sqlite.NewLedger(usage.WithLocation(filepath.Join(t.TempDir(), "usage.db")))
		},
	}

	const (
		callers = 24
		quota   = 3
	)

	for name, newLedger := range ledgers {
		t.Run(name, func(t *testing.T) {
			for round := 0; round < 5; round++ {
				ctx := context.Background()
				ledger := newLedger(t)
				svc := New(ledger, WithClock(fixed(noon)), WithQuota(session.ClassGuest, quota))
				guest := service.Caller{Address: "192.0.2.44"}

				var admitted, denied atomic.Int32
				var wg sync.WaitGroup
				gate := make(chan struct{})

				for i := 0; i < callers; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						<-gate
						_, err := svc.TryAdmit(ctx, guest, session.NewID())
						switch {
						case err == nil:
							admitted.Add(1)
						case assert.ErrorIs(t, err, service.ErrQuotaExceeded):
							denied.Add(1)
						}
					}()
				}

				close(gate)
				wg.Wait()

				assert.Equal(t, int32(quota), admitted.Load())
				assert.Equal(t, int32(callers-quota), denied.Load())

				start, end := Window(noon)
				n, err := ledger.Count(ctx, guest.Source(), start, end)
				require.NoError(t, err)
				assert.Equal(t, quota, n)

				require.NoError(t, ledger.Close())
			}
		})
	}
}
