package workflow

import (
	"math/big"
	"sync"
	"time"
)

// Stage identifies the step a conversation is currently waiting on.
type Stage string

const (
	// StageIdle indicates there is no active conversation.
	StageIdle Stage = "idle"
	// StageAwaitingName waits for the user to type a name to register.
	StageAwaitingName Stage = "awaiting_name"
	// StageAwaitingPayment waits for the registration fee to arrive on chain.
	StageAwaitingPayment Stage = "awaiting_payment"
	// StageAwaitingRecipient waits for a transfer recipient (name or address).
	StageAwaitingRecipient Stage = "awaiting_recipient"
	// StageAwaitingAmount waits for the transfer amount.
	StageAwaitingAmount Stage = "awaiting_amount"
	// StageAwaitingTransferPayment waits for transfer funds to arrive on chain.
	StageAwaitingTransferPayment Stage = "awaiting_transfer_payment"
	// StageAwaitingDecryptName waits for a name to look up.
	StageAwaitingDecryptName Stage = "awaiting_decrypt_name"
)

// session holds the volatile state of one conversation. Sessions are
// replaced wholesale on begin and removed on terminal outcomes, never
// partially reused.
type session struct {
	stage     Stage
	gen       uint64
	createdAt time.Time

	// registration path
	name   string
	feeWei *big.Int

	// transfer path
	recipient       string
	amountWei       *big.Int
	startingBalance *big.Int
}

// sessionStore keys sessions by conversation id. Every begin bumps a
// generation counter; watchers carry the generation they were started for,
// so an outcome only applies while its session is still the current one.
type sessionStore struct {
	mu       sync.Mutex
	nextGen  uint64
	sessions map[int64]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[int64]*session)}
}

// begin replaces any existing session for the conversation and returns the
// new generation. Prior watchers become stale immediately.
func (s *sessionStore) begin(conv int64, stage Stage) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGen++
	s.sessions[conv] = &session{
		stage:     stage,
		gen:       s.nextGen,
		createdAt: time.Now(),
	}
	return s.nextGen
}

// stage returns the current stage, or StageIdle when no session exists.
func (s *sessionStore) stage(conv int64) Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[conv]; ok {
		return sess.stage
	}
	return StageIdle
}

// snapshot copies the current session so callers can read fields without
// holding the store lock.
func (s *sessionStore) snapshot(conv int64) (session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[conv]
	if !ok {
		return session{}, false
	}
	return *sess, true
}

// mutate applies fn to the current session and returns its generation.
func (s *sessionStore) mutate(conv int64, fn func(*session)) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[conv]
	if !ok {
		return 0, false
	}
	fn(sess)
	return sess.gen, true
}

// clear removes the session unconditionally.
func (s *sessionStore) clear(conv int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conv)
}

// clearIf removes the session only when gen still matches, and reports
// whether it did. This is the at-most-once gate for terminal actions: the
// first caller to clear a generation wins, later or stale outcomes are
// dropped.
func (s *sessionStore) clearIf(conv int64, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[conv]
	if !ok || sess.gen != gen {
		return false
	}
	delete(s.sessions, conv)
	return true
}
