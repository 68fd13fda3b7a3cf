// Package chat holds the per-recipient conversation state and the reply
// generation policy on top of it.
package chat

import "sync"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message in a conversation.
type Turn struct {
	Role    string
	Content string
}

// History is the in-memory rolling conversation buffer, keyed by chat id.
//
// Turns are only ever appended in (user, assistant) pairs, so the buffer
// always holds whole exchanges; eviction trims whole pairs from the front.
// State is deliberately not persisted: a restart starts every conversation
// fresh.
//
// Each recipient has its own lock. Exchanges for different recipients never
// contend; exchanges for the same recipient serialize, so a reply is always
// generated from the history that existed when its request started.
type History struct {
	maxExchanges int

	mu      sync.Mutex
	buckets map[int64]*bucket
}

type bucket struct {
	mu    sync.Mutex
	turns []Turn
}

const DefaultMaxExchanges = 5

func NewHistory(maxExchanges int) *History {
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	return &History{
		maxExchanges: maxExchanges,
		buckets:      map[int64]*bucket{},
	}
}

func (h *History) bucket(id int64) *bucket {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.buckets[id]
	if b == nil {
		b = &bucket{}
		h.buckets[id] = b
	}
	return b
}

// Get returns a copy of the recipient's turns, oldest first.
// Unknown recipients get an empty slice.
func (h *History) Get(id int64) []Turn {
	b := h.bucket(id)
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Turn(nil), b.turns...)
}

// AppendExchange records one (user, assistant) pair and evicts the oldest
// pairs beyond the retention limit.
func (h *History) AppendExchange(id int64, userText, assistantText string) {
	b := h.bucket(id)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.append(userText, assistantText, h.maxExchanges)
}

// Exchange runs one full read-generate-append cycle for a recipient while
// holding that recipient's lock. gen receives a snapshot of the current
// turns and returns the assistant reply; when record is false the exchange
// is not added to the buffer.
func (h *History) Exchange(id int64, userText string, gen func(turns []Turn) (reply string, record bool)) string {
	b := h.bucket(id)
	b.mu.Lock()
	defer b.mu.Unlock()

	reply, record := gen(append([]Turn(nil), b.turns...))
	if record {
		b.append(userText, reply, h.maxExchanges)
	}
	return reply
}

func (b *bucket) append(userText, assistantText string, maxExchanges int) {
	b.turns = append(b.turns,
		Turn{Role: RoleUser, Content: userText},
		Turn{Role: RoleAssistant, Content: assistantText},
	)
	if keep := maxExchanges * 2; len(b.turns) > keep {
		b.turns = append(b.turns[:0:0], b.turns[len(b.turns)-keep:]...)
	}
}
