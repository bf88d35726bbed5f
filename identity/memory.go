package identity

import (
	"context"

	"braces.dev/errtrace"

	"github.com/ghettovoice/registrar/internal/syncutil"
)

type agentKey struct {
	domain, username string
}

// MemoryStore is an in-memory [Store]. It is safe for concurrent use.
// Lookups return copies, mutating them does not affect the store.
type MemoryStore struct {
	peers  *syncutil.ShardMap[string, *Peer]
	agents *syncutil.ShardMap[agentKey, *Agent]
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		peers:  syncutil.NewShardMap[string, *Peer](),
		agents: syncutil.NewShardMap[agentKey, *Agent](),
	}
}

// PutPeer validates and stores the peer, replacing the peer with the same username.
func (s *MemoryStore) PutPeer(p *Peer) error {
	if err := p.Validate(); err != nil {
		return errtrace.Wrap(err)
	}
	s.peers.Set(p.Username, p.Clone())
	return nil
}

// PutAgent validates and stores the agent under each of its domains,
// replacing an agent with the same username in every domain it was stored under before.
func (s *MemoryStore) PutAgent(a *Agent) error {
	if err := a.Validate(); err != nil {
		return errtrace.Wrap(err)
	}
	a = a.Clone()
	s.DeleteAgent(a.Username)
	for _, d := range a.Domains {
		s.agents.Set(agentKey{CanonicalDomain(d), a.Username}, a)
	}
	return nil
}

// DeletePeer removes the peer, reporting whether it existed.
func (s *MemoryStore) DeletePeer(username string) bool {
	_, ok := s.peers.Del(username)
	return ok
}

// DeleteAgent removes the agent from all domains it was stored under.
func (s *MemoryStore) DeleteAgent(username string) bool {
	return s.agents.DelFunc(func(k agentKey, _ *Agent) bool { return k.username == username }) > 0
}

// LookupPeer implements [Store].
func (s *MemoryStore) LookupPeer(ctx context.Context, username string) (*Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	p, ok := s.peers.Get(username)
	if !ok {
		return nil, errtrace.Wrap(ErrNotFound)
	}
	return p.Clone(), nil
}

// LookupAgent implements [Store].
func (s *MemoryStore) LookupAgent(ctx context.Context, host, username string) (*Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	a, ok := s.agents.Get(agentKey{CanonicalDomain(host), username})
	if !ok {
		return nil, errtrace.Wrap(ErrNotFound)
	}
	return a.Clone(), nil
}
