// Package session holds per-user pending confirmations. One slot per user;
// a fresh command or any unrecognized reply discards the old slot rather
// than queueing behind it.
package session

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Kind tags what a pending slot is waiting to confirm.
type Kind int

const (
	OrderConfirm Kind = iota
	CancelConfirm
	StockInConfirm
	BookDisambiguation
)

// Pending is the transient state parked while a user answers Y/N or picks
// a disambiguation index. Payload holds the parsed or partially-resolved
// data the confirming handler resumes with.
type Pending struct {
	Kind      Kind
	Payload   any
	CreatedAt time.Time
}

type entry struct {
	p       Pending
	touched time.Time
}

const shardCount = 16

type shard struct {
	mu sync.Mutex
	m  map[string]entry
}

// Store is a sharded keyed slot store. Slots for different users are
// disjoint, so contention is per shard only. Slots idle longer than the
// inactivity window are evicted lazily on the next access to their shard.
type Store struct {
	shards [shardCount]shard
	idle   time.Duration
}

func NewStore(idle time.Duration) *Store {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	s := &Store{idle: idle}
	for i := range s.shards {
		s.shards[i].m = make(map[string]entry)
	}
	return s
}

func (s *Store) shardFor(userID string) *shard {
	var h uint32 = 2166136261
	for i := 0; i < len(userID); i++ {
		h ^= uint32(userID[i])
		h *= 16777619
	}
	return &s.shards[h%shardCount]
}

// Put parks a pending confirmation, replacing any existing slot.
func (s *Store) Put(userID string, p Pending) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s.evictStaleLocked(sh)
	sh.m[userID] = entry{p: p, touched: time.Now()}
}

// Take removes and returns the user's slot, if any.
func (s *Store) Take(userID string) (Pending, bool) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s.evictStaleLocked(sh)
	e, ok := sh.m[userID]
	if ok {
		delete(sh.m, userID)
	}
	return e.p, ok
}

// Clear drops the user's slot.
func (s *Store) Clear(userID string) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.m, userID)
}

func (s *Store) evictStaleLocked(sh *shard) {
	cutoff := time.Now().Add(-s.idle)
	for k, e := range sh.m {
		if e.touched.Before(cutoff) {
			delete(sh.m, k)
		}
	}
}

// Reply classifies a short answer to a pending slot.
type Reply int

const (
	ReplyOther Reply = iota
	ReplyYes
	ReplyNo
	ReplyIndex
)

var yesTokens = map[string]bool{
	"y": true, "yes": true, "ok": true, "好": true, "是": true, "確認": true, "確定": true,
}

var noTokens = map[string]bool{
	"n": true, "no": true, "否": true, "取消": true, "不要": true,
}

// ParseReply classifies text as an affirmative, a negative, or — for
// disambiguation slots — a bare 1-based index. Anything else is ReplyOther
// and clears the slot at the call site.
func ParseReply(text string) (Reply, int) {
	t := strings.ToLower(strings.TrimSpace(text))
	if yesTokens[t] {
		return ReplyYes, 0
	}
	if noTokens[t] {
		return ReplyNo, 0
	}
	if n, err := strconv.Atoi(t); err == nil && n > 0 {
		return ReplyIndex, n
	}
	return ReplyOther, 0
}
