package session

import (
	"sort"

	"github.com/Diamondrubix/ScrapBook/core"
)

// presenceSet tracks the other editors on the board.
type presenceSet struct {
	self   string
	others map[string]core.PresenceUser
}

func newPresenceSet(self string) *presenceSet {
	return &presenceSet{self: self, others: make(map[string]core.PresenceUser)}
}

func (p *presenceSet) apply(user core.PresenceUser) bool {
	if user.UserID == p.self {
		return false
	}
	if user.Left {
		_, ok := p.others[user.UserID]
		delete(p.others, user.UserID)
		return ok
	}
	p.others[user.UserID] = user
	return true
}

func (p *presenceSet) list() []core.PresenceUser {
	out := make([]core.PresenceUser, 0, len(p.others))
	for _, u := range p.others {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
