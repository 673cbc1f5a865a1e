package service

import "github.com/w-h-a/doclens/internal/service/session"

// Caller identifies who is making a request. AccountID is set only for a
// verified member; guests are known by network address alone.
type Caller struct {
	AccountID string
	Email     string
	Address   string
}

func (c Caller) Class() session.Class {
	if len(c.AccountID) > 0 {
		return session.ClassMember
	}
	return session.ClassGuest
}

// Source is the key usage is counted against.
func (c Caller) Source() string {
	if len(c.AccountID) > 0 {
		return "account:" + c.AccountID
	}
	return "addr:" + c.Address
}

// Owns reports whether the caller uploaded s.
func (c Caller) Owns(s *session.Session) bool {
	return s.Owner == c.Source()
}
