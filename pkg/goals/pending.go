package goals

// Ticket identifies one scheduled continuation for a node.
type Ticket struct {
	NodeID string
	seq    uint64
}

// Pending tracks deferred operations, such as a completion that runs after a
// short "completing…" delay. Only the most recent ticket armed for a node can
// be claimed, and only once; Cancel and Reset invalidate outstanding tickets.
// Like the engine it is meant for a single goroutine.
type Pending struct {
	seq  uint64
	live map[string]uint64
}

// NewPending returns an empty Pending.
func NewPending() *Pending {
	return &Pending{live: make(map[string]uint64)}
}

// Arm schedules a continuation for id, superseding any earlier one.
func (p *Pending) Arm(id string) Ticket {
	p.seq++
	p.live[id] = p.seq
	return Ticket{NodeID: id, seq: p.seq}
}

// Armed reports whether id has an outstanding continuation.
func (p *Pending) Armed(id string) bool {
	_, ok := p.live[id]
	return ok
}

// Cancel drops any continuation for id.
func (p *Pending) Cancel(id string) {
	delete(p.live, id)
}

// Reset drops every continuation, as when the tree they refer to is torn down.
func (p *Pending) Reset() {
	clear(p.live)
}

// Len is the number of outstanding continuations.
func (p *Pending) Len() int {
	return len(p.live)
}

// Claim consumes t if it is still the live ticket for its node.
func (p *Pending) Claim(t Ticket) bool {
	if seq, ok := p.live[t.NodeID]; !ok || seq != t.seq {
		return false
	}
	delete(p.live, t.NodeID)
	return true
}
