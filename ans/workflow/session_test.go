package workflow

import "testing"

func TestSessionStoreBeginReplacesAndBumpsGeneration(t *testing.T) {
	s := newSessionStore()

	g1 := s.begin(1, StageAwaitingName)
	g2 := s.begin(1, StageAwaitingRecipient)
	if g2 <= g1 {
		t.Fatalf("generation did not advance: g1=%d g2=%d", g1, g2)
	}
	if got := s.stage(1); got != StageAwaitingRecipient {
		t.Fatalf("stage = %q, want %q", got, StageAwaitingRecipient)
	}
}

func TestSessionStoreStageIdleWhenAbsent(t *testing.T) {
	s := newSessionStore()
	if got := s.stage(5); got != StageIdle {
		t.Fatalf("stage = %q, want %q", got, StageIdle)
	}
}

func TestSessionStoreMutateKeepsGeneration(t *testing.T) {
	s := newSessionStore()
	g := s.begin(1, StageAwaitingName)

	got, ok := s.mutate(1, func(sess *session) {
		sess.stage = StageAwaitingPayment
		sess.name = "alice.amb"
	})
	if !ok || got != g {
		t.Fatalf("mutate = (%d, %v), want (%d, true)", got, ok, g)
	}

	snap, ok := s.snapshot(1)
	if !ok || snap.stage != StageAwaitingPayment || snap.name != "alice.amb" {
		t.Fatalf("snapshot = (%+v, %v)", snap, ok)
	}
}

func TestSessionStoreMutateAbsent(t *testing.T) {
	s := newSessionStore()
	if _, ok := s.mutate(9, func(*session) {}); ok {
		t.Fatal("mutate on absent session reported ok")
	}
}

func TestSessionStoreClearIfIsAtMostOnce(t *testing.T) {
	s := newSessionStore()
	g := s.begin(1, StageAwaitingPayment)

	if !s.clearIf(1, g) {
		t.Fatal("first clearIf with current generation failed")
	}
	if s.clearIf(1, g) {
		t.Fatal("second clearIf succeeded; outcome applied twice")
	}
	if got := s.stage(1); got != StageIdle {
		t.Fatalf("stage after clear = %q, want %q", got, StageIdle)
	}
}

func TestSessionStoreClearIfStaleGeneration(t *testing.T) {
	s := newSessionStore()
	g1 := s.begin(1, StageAwaitingPayment)
	s.begin(1, StageAwaitingName)

	if s.clearIf(1, g1) {
		t.Fatal("clearIf with stale generation succeeded")
	}
	if got := s.stage(1); got != StageAwaitingName {
		t.Fatalf("current session disturbed: stage = %q", got)
	}
}
