package session

import (
	"context"
	"staffhub/authority"
	"time"

	"github.com/fundwit/go-commons/types"
)

type Session struct {
	Token    string                `json:"token"`
	Identity Identity              `json:"identity"`
	Perms    authority.Permissions `json:"perms"`

	SigningTime time.Time `json:"-"`

	Context context.Context `json:"-"`
}

type Identity struct {
	ID         types.ID `json:"id"`
	Identifier string   `json:"identifier"`
	Name       string   `json:"name"`
	Nickname   string   `json:"nickname"`
	Role       string   `json:"role"`
}

func (s Session) Clone() Session {
	c := s
	c.Perms = append(authority.Permissions{}, s.Perms...)
	return c
}

func (i Identity) DisplayName() string {
	if i.Nickname != "" {
		return i.Nickname
	}
	return i.Name
}
