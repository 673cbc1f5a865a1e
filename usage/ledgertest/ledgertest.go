// Package ledgertest holds the behaviour every usage.Ledger must share.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/usage"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func request(source string, quota int, at time.Time) usage.AdmitRequest {
	start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return usage.AdmitRequest{
		Source:      source,
		Class:       "guest",
		SessionID:   "session-" + source,
		Quota:       quota,
		WindowStart: start,
		WindowEnd:   start.Add(24 * time.Hour),
		Now:         at,
	}
}

// Run exercises ledger with its own set of subtests. Sources are unique per
// run so a shared backing store is fine.
func Run(t *testing.T, ledger usage.Ledger) {
	prefix := fmt.Sprintf("%d", time.Now().UnixNano())
	src := func(name string) string { return prefix + "-" + name }

	t.Run("QuotaIsEnforced", func(t *testing.T) {
		ctx := context.Background()
		source := src("sequential")

		first, err := ledger.Admit(ctx, request(source, 2, day.Add(time.Hour)))
		require.NoError(t, err)
		assert.True(t, first.Admitted)
		assert.Equal(t, 1, first.Remaining)
		require.NotNil(t, first.Record)

		second, err := ledger.Admit(ctx, request(source, 2, day.Add(2*time.Hour)))
		require.NoError(t, err)
		assert.True(t, second.Admitted)
		assert.Equal(t, 0, second.Remaining)

		third, err := ledger.Admit(ctx, request(source, 2, day.Add(3*time.Hour)))
		require.NoError(t, err)
		assert.False(t, third.Admitted)
		assert.Nil(t, third.Record)
		assert.Equal(t, 2, third.Used)

		n, err := ledger.Count(ctx, source, day, day.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("WindowsAreIndependent", func(t *testing.T) {
		ctx := context.Background()
		source := src("windows")

		d, err := ledger.Admit(ctx, request(source, 1, day.Add(23*time.Hour)))
		require.NoError(t, err)
		require.True(t, d.Admitted)

		d, err = ledger.Admit(ctx, request(source, 1, day.Add(23*time.Hour+time.Minute)))
		require.NoError(t, err)
		require.False(t, d.Admitted)

		d, err = ledger.Admit(ctx, request(source, 1, day.Add(25*time.Hour)))
		require.NoError(t, err)
		require.True(t, d.Admitted)
	})

	t.Run("SourcesAreIndependent", func(t *testing.T) {
		ctx := context.Background()

		for _, name := range []string{"a", "b"} {
			d, err := ledger.Admit(ctx, request(src("independent-"+name), 1, day.Add(time.Hour)))
			require.NoError(t, err)
			assert.True(t, d.Admitted)
		}
	})

	t.Run("RejectsInvalidRequest", func(t *testing.T) {
		_, err := ledger.Admit(context.Background(), request(src("invalid"), 0, day))
		require.ErrorIs(t, err, usage.ErrInvalidRequest)
	})

	t.Run("ConcurrentAdmissionsAreLinearizable", func(t *testing.T) {
		const (
			callers = 16
			quota   = 5
			rounds  = 3
		)

		for round := 0; round < rounds; round++ {
			ctx := context.Background()
			source := src(fmt.Sprintf("concurrent-%d", round))

			var admitted, denied atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})

			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					d, err := ledger.Admit(ctx, request(source, quota, day.Add(time.Hour)))
					if !assert.NoError(t, err) {
						return
					}
					if d.Admitted {
						admitted.Add(1)
					} else {
						denied.Add(1)
					}
				}()
			}

			close(start)
			wg.Wait()

			assert.Equal(t, int32(quota), admitted.Load())
			assert.Equal(t, int32(callers-quota), denied.Load())

			n, err := ledger.Count(ctx, source, day, day.Add(24*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, quota, n)
		}
	})
}
