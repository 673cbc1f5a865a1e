package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/w-h-a/doclens/internal/service/session"
)

func TestError_IsMatchesKind(t *testing.T) {
	cause := errors.New("provider timeout")
	err := fmt.Errorf("answering: %w", NewError(ErrSynthesis, "model did not answer", cause))

	assert.ErrorIs(t, err, ErrSynthesis)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRetrieval)
	assert.Equal(t, ErrSynthesis, Kind(err))
	assert.Equal(t, "model did not answer", Message(err))
}

func TestError_InternalHidesDetail(t *testing.T) {
	err := NewError(ErrInternal, "db password rejected", errors.New("boom"))

	assert.Equal(t, "internal error", Message(err))
	assert.Equal(t, ErrInternal, Kind(errors.New("plain")))
	assert.Equal(t, "internal error", Message(errors.New("plain")))
}

func TestError_String(t *testing.T) {
	assert.Equal(t, "not found", NewError(ErrNotFound, "", nil).Error())
	assert.Equal(t, "not found: session abc", NewError(ErrNotFound, "session abc", nil).Error())
}

func TestCaller(t *testing.T) {
	guest := Caller{Address: "198.51.100.1"}
	member := Caller{AccountID: "u-1", Address: "198.51.100.1"}

	assert.Equal(t, session.ClassGuest, guest.Class())
	assert.Equal(t, "addr:198.51.100.1", guest.Source())
	assert.Equal(t, session.ClassMember, member.Class())
	assert.Equal(t, "account:u-1", member.Source())

	s := &session.Session{Owner: member.Source()}
	assert.True(t, member.Owns(s))
	assert.False(t, guest.Owns(s))
}
