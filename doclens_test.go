package doclens

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/extractor"
	"github.com/w-h-a/doclens/extractor/text"
	"github.com/w-h-a/doclens/generator/extractive"
	"github.com/w-h-a/doclens/history/memory"
	"github.com/w-h-a/doclens/index/lexical"
	"github.com/w-h-a/doclens/internal/service"
	"github.com/w-h-a/doclens/internal/service/admission"
	"github.com/w-h-a/doclens/internal/service/ingest"
	"github.com/w-h-a/doclens/internal/service/query"
	"github.com/w-h-a/doclens/internal/service/session"
	usagememory "github.com/w-h-a/doclens/usage/memory"
)

func newLens(t *testing.T) *Lens {
	t.Helper()

	store := session.NewMemoryStore()
	ledger := usagememory.NewLedger()
	rec := memory.NewRecorder()
	adm := admission.New(ledger, admission.WithClock(func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}))
	router := extractor.NewRouter(map[string]extractor.Extractor{".txt": text.NewExtractor()})

	lens := New(
		ingest.New(router, lexical.NewBuilder(), store, adm, ingest.WithRecorder(rec), ingest.WithChunking(300, 50)),
		query.New(store, query.NewPipeline(extractive.NewGenerator()), query.WithRecorder(rec)),
		adm,
		store,
		ledger,
		rec,
	)
	t.Cleanup(func() { _ = lens.Close() })

	return lens
}

func contract() []byte {
	page1 := strings.Repeat("The tenant shall pay a monthly rent of 1200 dollars on the first day of the month. ", 4)
	page2 := strings.Repeat("The landlord must return the security deposit within thirty days after move out. ", 4)
	return []byte(page1 + "\f" + page2)
}

func TestLens_UploadAndAsk(t *testing.T) {
	ctx := context.Background()
	lens := newLens(t)
	guest := service.Caller{Address: "192.0.2.10"}

	res, err := lens.Upload(ctx, guest, "contract.txt", contract())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Passages, 2)
	assert.Equal(t, 1, lens.Sessions())

	ans, err := lens.Ask(ctx, guest, res.SessionID, "When is the security deposit returned?")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "deposit")

	queries, err := lens.Queries(ctx, guest, res.SessionID, "", 0)
	require.NoError(t, err)
	require.Len(t, queries, 1)

	// other callers never see someone else's questions
	queries, err = lens.Queries(ctx, service.Caller{Address: "192.0.2.11"}, res.SessionID, "", 0)
	require.NoError(t, err)
	assert.Empty(t, queries)
}

func TestLens_QueriesOnSharedDocument(t *testing.T) {
	ctx := context.Background()
	lens := newLens(t)
	alice := service.Caller{Address: "192.0.2.10"}

	demo, err := lens.Seed(ctx, "sample.txt", contract())
	require.NoError(t, err)

	_, err = lens.Ask(ctx, alice, demo.SessionID, "When is rent due?")
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		visitor := service.Caller{Address: fmt.Sprintf("198.51.100.%d", i)}
		_, err = lens.Ask(ctx, visitor, demo.SessionID, "Who returns the deposit?")
		require.NoError(t, err)
	}

	queries, err := lens.Queries(ctx, alice, demo.SessionID, "", 0)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "When is rent due?", queries[0].Question)
}

func TestLens_View(t *testing.T) {
	ctx := context.Background()
	lens := newLens(t)
	owner := service.Caller{Address: "192.0.2.10"}
	other := service.Caller{Address: "192.0.2.11"}

	res, err := lens.Upload(ctx, owner, "contract.txt", contract())
	require.NoError(t, err)

	sess, err := lens.View(ctx, owner, res.SessionID)
	require.NoError(t, err)
	assert.Contains(t, sess.Text, "security deposit")

	_, err = lens.View(ctx, other, res.SessionID)
	require.ErrorIs(t, err, service.ErrForbidden)

	demo, err := lens.Seed(ctx, "sample.txt", contract())
	require.NoError(t, err)

	_, err = lens.View(ctx, other, demo.SessionID)
	require.NoError(t, err)

	_, err = lens.View(ctx, other, "missing")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestLens_DocumentsRequiresMember(t *testing.T) {
	ctx := context.Background()
	lens := newLens(t)

	_, err := lens.Documents(ctx, service.Caller{Address: "192.0.2.10"}, 10)
	require.ErrorIs(t, err, service.ErrUnauthenticated)

	member := service.Caller{AccountID: "acct-1"}
	_, err = lens.Upload(ctx, member, "contract.txt", contract())
	require.NoError(t, err)

	docs, err := lens.Documents(ctx, member, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "contract.txt", docs[0].Name)
}

func TestLens_SimilarUnsupported(t *testing.T) {
	lens := newLens(t)

	_, err := lens.Queries(context.Background(), service.Caller{Address: "192.0.2.10"}, "doc", "rent", 5)
	require.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestLens_Usage(t *testing.T) {
	ctx := context.Background()
	lens := newLens(t)
	guest := service.Caller{Address: "192.0.2.10"}

	d, err := lens.Usage(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Remaining)

	_, err = lens.Upload(ctx, guest, "contract.txt", contract())
	require.NoError(t, err)

	d, err = lens.Usage(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, 1, d.Used)
}
