package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambns/ansbot/ans/chain"
	"github.com/ambns/ansbot/ans/registry"
	"github.com/ambns/ansbot/ans/workflow"
)

const (
	custodialAddr = "0xC0ffee0000000000000000000000000000000000"
	senderAddr    = "0xSender00000000000000000000000000000000"
	bobAddr       = "0xBob0000000000000000000000000000000000"
)

type submission struct {
	to    string
	value *big.Int
}

type fakeGateway struct {
	mu         sync.Mutex
	txs        []chain.Tx
	balance    *big.Int
	blockErrs  int
	submitErr  error
	submitted  []submission
	blockCalls int
}

var _ chain.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{balance: big.NewInt(0)}
}

func (g *fakeGateway) Ping(ctx context.Context) error { return nil }

func (g *fakeGateway) LatestBlockTransactions(ctx context.Context) ([]chain.Tx, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blockCalls++
	if g.blockErrs > 0 {
		g.blockErrs--
		return nil, errors.New("connection refused")
	}
	out := make([]chain.Tx, len(g.txs))
	copy(out, g.txs)
	return out, nil
}

func (g *fakeGateway) Balance(ctx context.Context, address string) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return new(big.Int).Set(g.balance), nil
}

func (g *fakeGateway) TransactionCount(ctx context.Context, address string) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return uint64(len(g.submitted)), nil
}

func (g *fakeGateway) SubmitTransfer(ctx context.Context, to string, valueWei *big.Int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return "", g.submitErr
	}
	g.submitted = append(g.submitted, submission{to: to, value: new(big.Int).Set(valueWei)})
	return fmt.Sprintf("0xhash%d", len(g.submitted)), nil
}

func (g *fakeGateway) ValidAddress(s string) bool { return strings.HasPrefix(s, "0x") }

func (g *fakeGateway) CustodialAddress() string { return custodialAddr }

func (g *fakeGateway) setLatestTxs(txs ...chain.Tx) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.txs = txs
}

func (g *fakeGateway) setBalance(wei *big.Int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balance = new(big.Int).Set(wei)
}

func (g *fakeGateway) addBalance(wei *big.Int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balance = new(big.Int).Add(g.balance, wei)
}

func (g *fakeGateway) latestBlockCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blockCalls
}

func (g *fakeGateway) submissions() []submission {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]submission, len(g.submitted))
	copy(out, g.submitted)
	return out
}

type fakeRegistry struct {
	mu      sync.Mutex
	entries map[string]string
	owners  map[string]int64
	inserts int
}

var _ workflow.Registry = (*fakeRegistry)(nil)

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{entries: make(map[string]string), owners: make(map[string]int64)}
}

func (r *fakeRegistry) Lookup(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if addr, ok := r.entries[name]; ok {
		return addr, nil
	}
	return "", registry.ErrNameNotFound
}

func (r *fakeRegistry) Insert(ctx context.Context, name, address string, requesterID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return registry.ErrNameTaken
	}
	r.entries[name] = address
	r.owners[name] = requesterID
	r.inserts++
	return nil
}

func (r *fakeRegistry) insertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserts
}

func (r *fakeRegistry) entry(name string) (string, int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr, ok := r.entries[name]
	return addr, r.owners[name], ok
}

type fakeNotifier struct {
	batches chan []workflow.Message
}

var _ workflow.Notifier = (*fakeNotifier)(nil)

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{batches: make(chan []workflow.Message, 16)}
}

func (n *fakeNotifier) Notify(ctx context.Context, conversationID int64, msgs []workflow.Message) {
	n.batches <- msgs
}

func (n *fakeNotifier) next(t *testing.T, timeout time.Duration) []workflow.Message {
	t.Helper()
	select {
	case msgs := <-n.batches:
		return msgs
	case <-time.After(timeout):
		t.Fatal("timed out waiting for notification")
		return nil
	}
}

func (n *fakeNotifier) expectNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case msgs := <-n.batches:
		t.Fatalf("unexpected notification: %+v", msgs)
	case <-time.After(within):
	}
}

func newTestEngine(gw *fakeGateway, reg *fakeRegistry, n *fakeNotifier) *workflow.Engine {
	return workflow.New(workflow.Config{
		PollInterval:       2 * time.Millisecond,
		PaymentTimeout:     80 * time.Millisecond,
		RegistrationFeeWei: chain.AMBToWei(2),
	}, gw, reg, n)
}

func joinedText(msgs []workflow.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestRegistrationHappyPath(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(42)

	msgs := e.Button(ctx, conv, workflow.ActionCreateName)
	require.Len(t, msgs, 2)
	require.Equal(t, workflow.StageAwaitingName, e.Stage(conv))

	msgs = e.Text(ctx, conv, "alice.amb")
	require.Contains(t, joinedText(msgs), custodialAddr)
	require.Equal(t, workflow.StageAwaitingPayment, e.Stage(conv))

	gw.setLatestTxs(chain.Tx{From: senderAddr, To: custodialAddr, Value: chain.AMBToWei(3)})

	outcome := notif.next(t, 2*time.Second)
	assert.Contains(t, joinedText(outcome), "successfully created")

	addr, owner, ok := reg.entry("alice.amb")
	require.True(t, ok)
	assert.Equal(t, senderAddr, addr)
	assert.Equal(t, conv, owner)
	assert.Equal(t, workflow.StageIdle, e.Stage(conv))
}

func TestRegistrationNameAlreadyTaken(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	require.NoError(t, reg.Insert(context.Background(), "alice.amb", "0xOther", 1))
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(7)

	e.Button(ctx, conv, workflow.ActionCreateName)
	msgs := e.Text(ctx, conv, "alice.amb")
	assert.Contains(t, joinedText(msgs), "already taken")
	assert.Equal(t, workflow.StageAwaitingName, e.Stage(conv))
	// rejection happens before any polling begins
	assert.Equal(t, 0, gw.latestBlockCalls())
}

func TestRegistrationInvalidNamesReprompt(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(9)

	e.Button(ctx, conv, workflow.ActionCreateName)
	for _, input := range []string{"alice", ".amb", "", "alice.eth"} {
		msgs := e.Text(ctx, conv, input)
		assert.Contains(t, joinedText(msgs), "Invalid name format", "input %q", input)
		assert.Equal(t, workflow.StageAwaitingName, e.Stage(conv))
	}
}

func TestRegistrationTimeout(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(11)

	e.Button(ctx, conv, workflow.ActionCreateName)
	e.Text(ctx, conv, "alice.amb")

	outcome := notif.next(t, 2*time.Second)
	assert.Contains(t, joinedText(outcome), "timed out")
	assert.Equal(t, workflow.StageIdle, e.Stage(conv))
	assert.Equal(t, 0, reg.insertCount())
}

func TestRegistrationSurvivesGatewayFaults(t *testing.T) {
	gw := newFakeGateway()
	gw.blockErrs = 3
	gw.setLatestTxs(chain.Tx{From: senderAddr, To: custodialAddr, Value: chain.AMBToWei(2)})
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(13)

	e.Button(ctx, conv, workflow.ActionCreateName)
	e.Text(ctx, conv, "alice.amb")

	outcome := notif.next(t, 2*time.Second)
	assert.Contains(t, joinedText(outcome), "successfully created")
	assert.Equal(t, 1, reg.insertCount())
}

func TestButtonRestartDiscardsPendingWatch(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(17)

	e.Button(ctx, conv, workflow.ActionCreateName)
	e.Text(ctx, conv, "alice.amb")
	require.Equal(t, workflow.StageAwaitingPayment, e.Stage(conv))

	// Pressing the button again replaces the session wholesale; the pending
	// watcher's outcome must be dropped even if payment then arrives.
	e.Button(ctx, conv, workflow.ActionCreateName)
	require.Equal(t, workflow.StageAwaitingName, e.Stage(conv))

	gw.setLatestTxs(chain.Tx{From: senderAddr, To: custodialAddr, Value: chain.AMBToWei(2)})
	notif.expectNone(t, 30*time.Millisecond)
	assert.Equal(t, 0, reg.insertCount())
	assert.Equal(t, workflow.StageAwaitingName, e.Stage(conv))
}

func TestTransferHappyPathViaName(t *testing.T) {
	gw := newFakeGateway()
	gw.setBalance(chain.AMBToWei(100))
	reg := newFakeRegistry()
	require.NoError(t, reg.Insert(context.Background(), "bob.amb", bobAddr, 1))
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(21)

	e.Button(ctx, conv, workflow.ActionMakeTransfer)
	require.Equal(t, workflow.StageAwaitingRecipient, e.Stage(conv))

	msgs := e.Text(ctx, conv, "bob.amb")
	assert.Contains(t, joinedText(msgs), "Processing transfer")
	require.Equal(t, workflow.StageAwaitingAmount, e.Stage(conv))

	msgs = e.Text(ctx, conv, "5")
	assert.Contains(t, joinedText(msgs), custodialAddr)
	require.Equal(t, workflow.StageAwaitingTransferPayment, e.Stage(conv))

	gw.addBalance(chain.AMBToWei(5))

	outcome := notif.next(t, 2*time.Second)
	assert.Contains(t, joinedText(outcome), "successful")
	assert.Contains(t, joinedText(outcome), "0xhash1")

	subs := gw.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, bobAddr, subs[0].to)
	assert.Equal(t, 0, chain.AMBToWei(5).Cmp(subs[0].value))
	assert.Equal(t, workflow.StageIdle, e.Stage(conv))
}

func TestTransferRecipientRawAddress(t *testing.T) {
	gw := newFakeGateway()
	gw.setBalance(chain.AMBToWei(10))
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(22)

	e.Button(ctx, conv, workflow.ActionMakeTransfer)
	e.Text(ctx, conv, strings.ToLower(bobAddr))
	assert.Equal(t, workflow.StageAwaitingAmount, e.Stage(conv))
}

func TestTransferRecipientInvalidInputReprompts(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(23)

	e.Button(ctx, conv, workflow.ActionMakeTransfer)
	msgs := e.Text(ctx, conv, "not-an-address-or-name")
	assert.Contains(t, joinedText(msgs), "Invalid input")
	assert.Equal(t, workflow.StageAwaitingRecipient, e.Stage(conv))
}

func TestTransferUnknownNameAbandonsSession(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(24)

	e.Button(ctx, conv, workflow.ActionMakeTransfer)
	msgs := e.Text(ctx, conv, "ghost.amb")
	assert.Contains(t, joinedText(msgs), "does not exist")
	assert.Equal(t, workflow.StageIdle, e.Stage(conv))
}

func TestTransferAmountValidation(t *testing.T) {
	gw := newFakeGateway()
	gw.setBalance(chain.AMBToWei(10))
	reg := newFakeRegistry()
	require.NoError(t, reg.Insert(context.Background(), "bob.amb", bobAddr, 1))
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(25)

	e.Button(ctx, conv, workflow.ActionMakeTransfer)
	e.Text(ctx, conv, "bob.amb")

	for _, input := range []string{"abc", "0", "-3", ""} {
		msgs := e.Text(ctx, conv, input)
		assert.Contains(t, joinedText(msgs), "Invalid amount", "input %q", input)
		assert.Equal(t, workflow.StageAwaitingAmount, e.Stage(conv))
	}
}

func TestTransferSubmissionFailureNoRefund(t *testing.T) {
	gw := newFakeGateway()
	gw.setBalance(chain.AMBToWei(10))
	gw.submitErr = errors.New("insufficient gas")
	reg := newFakeRegistry()
	require.NoError(t, reg.Insert(context.Background(), "bob.amb", bobAddr, 1))
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(26)

	e.Button(ctx, conv, workflow.ActionMakeTransfer)
	e.Text(ctx, conv, "bob.amb")
	e.Text(ctx, conv, "1")
	gw.addBalance(chain.AMBToWei(1))

	outcome := notif.next(t, 2*time.Second)
	assert.Contains(t, joinedText(outcome), "insufficient gas")
	assert.Equal(t, workflow.StageIdle, e.Stage(conv))
	assert.Empty(t, gw.submissions())
}

func TestDecryptPaths(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	require.NoError(t, reg.Insert(context.Background(), "alice.amb", senderAddr, 1))
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(31)

	e.Button(ctx, conv, workflow.ActionDecryptName)
	require.Equal(t, workflow.StageAwaitingDecryptName, e.Stage(conv))

	// malformed input re-prompts without ending the session
	msgs := e.Text(ctx, conv, "alice")
	assert.Contains(t, joinedText(msgs), "Invalid name format")
	assert.Equal(t, workflow.StageAwaitingDecryptName, e.Stage(conv))

	msgs = e.Text(ctx, conv, "ALICE.amb")
	assert.Contains(t, joinedText(msgs), senderAddr)
	assert.Equal(t, workflow.StageIdle, e.Stage(conv))

	e.Button(ctx, conv, workflow.ActionDecryptName)
	msgs = e.Text(ctx, conv, "ghost.amb")
	assert.Contains(t, joinedText(msgs), "does not exist")
	assert.Equal(t, workflow.StageIdle, e.Stage(conv))
}

func TestTextWhileIdleIsANotice(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	msgs := e.Text(context.Background(), 99, "hello")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "not waiting")
	assert.Equal(t, workflow.StageIdle, e.Stage(99))
}

func TestTextDuringPaymentWaitDoesNotDisturbSession(t *testing.T) {
	gw := newFakeGateway()
	reg := newFakeRegistry()
	notif := newFakeNotifier()
	e := newTestEngine(gw, reg, notif)
	defer e.Close()

	ctx := context.Background()
	const conv = int64(33)

	e.Button(ctx, conv, workflow.ActionCreateName)
	e.Text(ctx, conv, "alice.amb")
	require.Equal(t, workflow.StageAwaitingPayment, e.Stage(conv))

	msgs := e.Text(ctx, conv, "did it work?")
	assert.Contains(t, joinedText(msgs), "not waiting")
	assert.Equal(t, workflow.StageAwaitingPayment, e.Stage(conv))
}

func TestValidName(t *testing.T) {
	valid := []string{"alice.amb", "a.amb", "a.b.amb"}
	invalid := []string{"", ".amb", "alice", "alice.eth", "alice.amb.eth"}
	for _, s := range valid {
		assert.True(t, workflow.ValidName(s), "expected %q valid", s)
	}
	for _, s := range invalid {
		assert.False(t, workflow.ValidName(s), "expected %q invalid", s)
	}
}
