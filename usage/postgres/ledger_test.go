package postgres

import (
	"os"
	"testing"

	"github.com/w-h-a/doclens/usage"
	"github.com/w-h-a/doclens/usage/ledgertest"
)

func TestLedger(t *testing.T) {
	dsn := os.Getenv("DOCLENS_TEST_PG_DSN")
	if len(dsn) == 0 {
		t.Skip("DOCLENS_TEST_PG_DSN not set")
	}

	l := NewLedger(usage.WithLocation(dsn))
	t.Cleanup(func() { l.Close() })

	ledgertest.Run(t, l)
}
