package session

import (
	"time"

	"github.com/w-h-a/doclens/chunker"
	"github.com/w-h-a/doclens/index"
)

type Class string

const (
	ClassDemo   Class = "demo"
	ClassGuest  Class = "guest"
	ClassMember Class = "member"
)

// Session holds everything derived from one uploaded document. It is
// complete when inserted and never mutated afterwards.
type Session struct {
	ID        string
	Name      string
	Text      string
	Passages  []chunker.Passage
	Index     index.Index
	Class     Class
	Owner     string
	Viewable  bool
	Evictable bool
	CreatedAt time.Time
}

// Draft carries a fully built session into the store. ID may be pre-minted
// by the caller; the store assigns one otherwise.
type Draft struct {
	ID       string
	Name     string
	Text     string
	Passages []chunker.Passage
	Index    index.Index
	Class    Class
	Owner    string
	Viewable bool
}
