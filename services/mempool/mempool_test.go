// Copyright (c) 2017-2020 The lyra developers

package mempool

import (
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyrachain/lyra/common/jobs"
	"github.com/lyrachain/lyra/core/event"
	"github.com/lyrachain/lyra/core/types"
	"github.com/lyrachain/lyra/crypto"
	"github.com/lyrachain/lyra/params"
	"github.com/lyrachain/lyra/services/acct"
	txl "github.com/lyrachain/lyra/services/tx"
)

type harness struct {
	pool     *TxPool
	accounts *acct.AccountManager
	bus      *event.Bus
	jobs     *jobs.Queue
	events   chan *event.Event
}

func newHarness(t *testing.T, storageLimit int) *harness {
	accounts, err := acct.New()
	require.NoError(t, err)

	h := &harness{
		accounts: accounts,
		bus:      event.NewBus(),
		jobs:     jobs.NewQueue(),
		events:   make(chan *event.Event, 16),
	}
	h.bus.Subscribe(BroadcastTopic, h.events)
	h.pool = New(&Config{
		Policy: Policy{
			StorageLimit:    storageLimit,
			ProcessInterval: time.Second,
			ExpiryInterval:  time.Second,
		},
		Accounts: accounts,
		TxLogic:  txl.New(),
		Events:   h.bus,
		Jobs:     h.jobs,
	})
	return h
}

func keyFromSecret(t *testing.T, secret string) *crypto.KeyPair {
	seed := sha256.Sum256([]byte(secret))
	kp, err := crypto.MakeKeypair(seed[:])
	require.NoError(t, err)
	return kp
}

func (h *harness) fund(t *testing.T, kp *crypto.KeyPair, balance int64) string {
	address, err := h.accounts.GenerateAddressByPublicKey(kp.PublicHex())
	require.NoError(t, err)
	h.accounts.SetAccount(&types.Account{
		Address:   address,
		PublicKey: kp.PublicHex(),
		Balance:   big.NewInt(balance),
	})
	return address
}

func (h *harness) address(t *testing.T, kp *crypto.KeyPair) string {
	address, err := h.accounts.GenerateAddressByPublicKey(kp.PublicHex())
	require.NoError(t, err)
	return address
}

func seal(kp *crypto.KeyPair, t *types.Transaction) *types.Transaction {
	t.Signature = txl.Sign(kp, t)
	t.Id = txl.IdOf(t)
	return t
}

func makeTransfer(kp *crypto.KeyPair, recipient string, amount, fee int64) *types.Transaction {
	return seal(kp, &types.Transaction{
		Type:            types.TxTypeSend,
		SenderPublicKey: kp.PublicHex(),
		RecipientId:     recipient,
		Amount:          big.NewInt(amount),
		Fee:             big.NewInt(fee),
		Timestamp:       params.ChainTime(time.Now()),
	})
}

func makeDelegate(kp *crypto.KeyPair, fee int64) *types.Transaction {
	return seal(kp, &types.Transaction{
		Type:            types.TxTypeDelegate,
		SenderPublicKey: kp.PublicHex(),
		Fee:             big.NewInt(fee),
		Timestamp:       params.ChainTime(time.Now()),
	})
}

func makeMulti(kp *crypto.KeyPair, fee int64, min, lifetime int, members ...*crypto.KeyPair) *types.Transaction {
	keysgroup := make([]string, 0, len(members))
	for _, m := range members {
		keysgroup = append(keysgroup, "+"+m.PublicHex())
	}
	return seal(kp, &types.Transaction{
		Type:            types.TxTypeMulti,
		SenderPublicKey: kp.PublicHex(),
		Fee:             big.NewInt(fee),
		Timestamp:       params.ChainTime(time.Now()),
		Signatures:      []string{},
		Asset: types.Asset{
			MultiSignature: &types.MultiSignatureAsset{
				Min:       min,
				Lifetime:  lifetime,
				Keysgroup: keysgroup,
			},
		},
	})
}

func (h *harness) broadcastBatch(t *testing.T) []*types.Transaction {
	select {
	case ev := <-h.events:
		batch, ok := ev.Data.([]*types.Transaction)
		require.True(t, ok)
		return batch
	default:
		return nil
	}
}

// Scenario: a solvent transfer is accepted straight into the ready list
// and joins the next broadcast batch.
func TestSimpleAccept(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	h.fund(t, alice, 100)

	tx := makeTransfer(alice, h.address(t, bob), 10, 1)
	require.NoError(t, h.pool.ProcessTransaction(tx, true))

	got, status := h.pool.Get(tx.Id)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, tx.Id, got.Id)
	assert.Equal(t, h.address(t, alice), got.SenderId)

	ready := h.pool.GetReady(0)
	require.Len(t, ready, 1)
	assert.Equal(t, tx.Id, ready[0].Id)

	h.pool.ProcessPool()
	batch := h.broadcastBatch(t)
	require.Len(t, batch, 1)
	assert.Equal(t, tx.Id, batch[0].Id)

	// The outbox is drained; the next tick publishes nothing.
	h.pool.ProcessPool()
	assert.Nil(t, h.broadcastBatch(t))
}

// Scenario: spending more than the projected balance is rejected
// without caching the id as invalid.
func TestInsufficientFunds(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	h.fund(t, alice, 100)

	tx := makeTransfer(alice, h.address(t, bob), 200, 1)
	err := h.pool.ProcessTransaction(tx, false)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrInsufficientFunds))

	_, status := h.pool.Get(tx.Id)
	assert.Equal(t, StatusNotInPool, status)
	assert.Equal(t, "not in pool", status.String())
	assert.Equal(t, 0, h.pool.GetUsage().Invalid)

	// Re-admission fails on solvency again, not on the invalid cache.
	err = h.pool.ProcessTransaction(tx, false)
	assert.True(t, IsErrorCode(err, ErrInsufficientFunds))
}

func TestDuplicateRejection(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	h.fund(t, alice, 100)

	tx := makeTransfer(alice, h.address(t, bob), 10, 1)
	require.NoError(t, h.pool.ProcessTransaction(tx, false))

	err := h.pool.ProcessTransaction(tx, false)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrDuplicateInPool))
}

func TestPoolFull(t *testing.T) {
	h := newHarness(t, 1)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	h.fund(t, alice, 100)

	require.NoError(t, h.pool.ProcessTransaction(makeTransfer(alice, h.address(t, bob), 1, 1), false))

	err := h.pool.ProcessTransaction(makeTransfer(alice, h.address(t, bob), 2, 1), false)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrPoolFull))
}

// Scenario: a future-dated transaction routes to pending and stays
// there.
func TestFutureTimestampRoutesToPending(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	h.fund(t, alice, 100)

	tx := seal(alice, &types.Transaction{
		Type:            types.TxTypeSend,
		SenderPublicKey: alice.PublicHex(),
		RecipientId:     h.address(t, bob),
		Amount:          big.NewInt(10),
		Fee:             big.NewInt(1),
		Timestamp:       params.ChainTime(time.Now().Add(time.Hour)),
	})
	require.NoError(t, h.pool.ProcessTransaction(tx, false))

	_, status := h.pool.Get(tx.Id)
	assert.Equal(t, StatusPending, status)

	h.pool.ProcessPool()
	_, status = h.pool.Get(tx.Id)
	assert.Equal(t, StatusPending, status)
}

// Scenario: a multisignature registration collects co-signatures in
// pending and the next tick promotes and broadcasts it.
func TestMultisigLifecycle(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	carol := keyFromSecret(t, "carol")
	dave := keyFromSecret(t, "dave")
	h.fund(t, alice, 100)

	tx := makeMulti(alice, 5, 2, 24, carol, dave)
	require.NoError(t, h.pool.ProcessTransaction(tx, true))

	_, status := h.pool.Get(tx.Id)
	require.Equal(t, StatusPending, status)

	// One signature is not enough.
	require.NoError(t, h.pool.AddSignature(tx.Id, "carol"))
	h.pool.ProcessPool()
	_, status = h.pool.Get(tx.Id)
	require.Equal(t, StatusPending, status)
	assert.Nil(t, h.broadcastBatch(t))

	require.NoError(t, h.pool.AddSignature(tx.Id, "dave"))
	h.pool.ProcessPool()
	_, status = h.pool.Get(tx.Id)
	assert.Equal(t, StatusReady, status)

	batch := h.broadcastBatch(t)
	require.Len(t, batch, 1)
	assert.Equal(t, tx.Id, batch[0].Id)
}

func TestAddSignatureErrors(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	carol := keyFromSecret(t, "carol")
	dave := keyFromSecret(t, "dave")
	h.fund(t, alice, 100)

	err := h.pool.AddSignature("12345", "carol")
	assert.True(t, IsErrorCode(err, ErrNotInPool))

	tx := makeMulti(alice, 5, 2, 24, carol, dave)
	require.NoError(t, h.pool.ProcessTransaction(tx, false))

	err = h.pool.AddSignature(tx.Id, "mallory")
	assert.True(t, IsErrorCode(err, ErrPermissionDenied))

	require.NoError(t, h.pool.AddSignature(tx.Id, "carol"))
	err = h.pool.AddSignature(tx.Id, "carol")
	assert.True(t, IsErrorCode(err, ErrAlreadySigned))
}

// Peer ingress defers verification to the promotion tick, which then
// honours the broadcast flag.
func TestPeerIngressPromotion(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	h.fund(t, alice, 100)

	tx := makeTransfer(alice, h.address(t, bob), 10, 1)
	require.NoError(t, h.pool.AddFromPeer([]*types.Transaction{tx}, true))

	_, status := h.pool.Get(tx.Id)
	require.Equal(t, StatusUnverified, status)

	h.pool.ProcessPool()
	_, status = h.pool.Get(tx.Id)
	assert.Equal(t, StatusReady, status)

	batch := h.broadcastBatch(t)
	require.Len(t, batch, 1)
	assert.Equal(t, tx.Id, batch[0].Id)

	// A promotion tick is convergent: running it again changes nothing.
	h.pool.ProcessPool()
	usage := h.pool.GetUsage()
	assert.Equal(t, 0, usage.Unverified)
	assert.Equal(t, 1, usage.Ready)
}

// A peer transaction with a bad signature is dropped by Phase A and its
// id is cached as invalid.
func TestPeerIngressInvalidSignature(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	mallory := keyFromSecret(t, "mallory")
	h.fund(t, alice, 100)

	tx := makeTransfer(alice, h.address(t, bob), 10, 1)
	tx.Signature = txl.Sign(mallory, tx)
	tx.Id = txl.IdOf(tx)
	require.NoError(t, h.pool.AddFromPeer([]*types.Transaction{tx}, false))

	h.pool.ProcessPool()
	_, status := h.pool.Get(tx.Id)
	assert.Equal(t, StatusNotInPool, status)
	assert.Equal(t, 1, h.pool.GetUsage().Invalid)

	err := h.pool.AddFromPeer([]*types.Transaction{tx}, false)
	assert.True(t, IsErrorCode(err, ErrAlreadyInvalid))
}

func TestVerifyFailureCachesInvalid(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	mallory := keyFromSecret(t, "mallory")
	h.fund(t, alice, 100)

	tx := makeTransfer(alice, h.address(t, bob), 10, 1)
	tx.Signature = txl.Sign(mallory, tx)
	tx.Id = txl.IdOf(tx)

	err := h.pool.ProcessTransaction(tx, false)
	assert.True(t, IsErrorCode(err, ErrVerifyFailed))

	err = h.pool.ProcessTransaction(tx, false)
	assert.True(t, IsErrorCode(err, ErrAlreadyInvalid))

	// The reaper gives the id a second chance.
	h.pool.ResetInvalidTransactions()
	assert.Equal(t, 0, h.pool.GetUsage().Invalid)
	err = h.pool.ProcessTransaction(tx, false)
	assert.True(t, IsErrorCode(err, ErrVerifyFailed))
}

// The unique-type rule admits at most one signature/delegate/multi
// transaction per sender into the ready list.
func TestUniqueTypePerSender(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	h.fund(t, alice, 100)

	first := makeDelegate(alice, 1)
	require.NoError(t, h.pool.ProcessTransaction(first, false))
	_, status := h.pool.Get(first.Id)
	require.Equal(t, StatusReady, status)

	second := seal(alice, &types.Transaction{
		Type:            types.TxTypeDelegate,
		SenderPublicKey: alice.PublicHex(),
		Fee:             big.NewInt(2),
		Timestamp:       params.ChainTime(time.Now()),
	})
	err := h.pool.ProcessTransaction(second, false)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrDuplicateTypeForSender))
}

// Ready receipts count toward the recipient's projected balance.
func TestProjectedBalanceReceipts(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	carol := keyFromSecret(t, "carol")
	h.fund(t, alice, 100)
	h.fund(t, bob, 0)

	require.NoError(t, h.pool.ProcessTransaction(makeTransfer(alice, h.address(t, bob), 50, 1), false))

	// Bob has no confirmed funds but a 50 receipt in ready.
	tx := makeTransfer(bob, h.address(t, carol), 40, 1)
	require.NoError(t, h.pool.ProcessTransaction(tx, false))
	_, status := h.pool.Get(tx.Id)
	assert.Equal(t, StatusReady, status)
}

func TestIdempotentInsert(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	tx := makeTransfer(alice, h.address(t, bob), 10, 1)

	desc := &TxDesc{Tx: tx, Added: time.Now()}
	h.pool.mtx.Lock()
	h.pool.insert(h.pool.ready, desc)
	h.pool.insert(h.pool.ready, desc)
	h.pool.mtx.Unlock()

	assert.Equal(t, 1, h.pool.Count())
}

func TestRemoveTransaction(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	h.fund(t, alice, 100)

	tx := makeTransfer(alice, h.address(t, bob), 10, 1)
	require.NoError(t, h.pool.ProcessTransaction(tx, false))

	status, found := h.pool.RemoveTransaction(tx.Id)
	require.True(t, found)
	assert.Equal(t, StatusReady, status)

	got, status := h.pool.Get(tx.Id)
	assert.Nil(t, got)
	assert.Equal(t, StatusNotInPool, status)

	_, found = h.pool.RemoveTransaction(tx.Id)
	assert.False(t, found)
}

func TestAddReady(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	h.fund(t, alice, 100)

	txs := []*types.Transaction{
		makeTransfer(alice, h.address(t, bob), 1, 1),
		makeTransfer(alice, h.address(t, bob), 2, 1),
		makeTransfer(alice, h.address(t, bob), 3, 1),
	}
	h.pool.AddReady(txs)

	ready := h.pool.GetReady(0)
	require.Len(t, ready, 3)
	seen := make(map[string]int)
	for _, tx := range ready {
		seen[tx.Id]++
	}
	for _, tx := range txs {
		assert.Equal(t, 1, seen[tx.Id])
	}

	// Moving again is idempotent and keeps the lists disjoint.
	h.pool.AddReady(txs[:1])
	assert.Equal(t, 3, h.pool.Count())
}

// Scenario: after a block shrinks the sender's confirmed balance, the
// credit-pop eviction removes the larger ready transaction and leaves
// the sender solvent.
func TestSanitizeRebalance(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	carol := keyFromSecret(t, "carol")
	h.fund(t, alice, 100)
	addrAlice := h.address(t, alice)
	addrBob := h.address(t, bob)

	// Equal spends with distinct ids: identical fields would hash to
	// the same id and collapse into a single ready entry.
	x := makeTransfer(alice, addrBob, 30, 1)
	y := makeTransfer(alice, h.address(t, carol), 30, 1)
	h.pool.AddReady([]*types.Transaction{x, y})

	// The confirmed spend drops the balance so only one of the two
	// ready debits is covered.
	confirmed := makeTransfer(alice, addrBob, 49, 1)
	h.accounts.SetAccount(&types.Account{
		Address:   addrAlice,
		PublicKey: alice.PublicHex(),
		Balance:   big.NewInt(50),
	})

	h.pool.SanitizeTransactions([]*types.Transaction{confirmed})

	ready := h.pool.GetReady(0)
	require.Len(t, ready, 1)
	survivor, evicted := x, y
	if x.Id > y.Id {
		survivor, evicted = y, x
	}
	assert.Equal(t, survivor.Id, ready[0].Id)
	_, status := h.pool.Get(evicted.Id)
	assert.Equal(t, StatusNotInPool, status)

	h.pool.mtx.RLock()
	projected := h.pool.projectedBalance(addrAlice)
	h.pool.mtx.RUnlock()
	assert.True(t, projected.Sign() >= 0)
}

// An exact deficit match evicts exactly the offending transaction.
func TestSanitizeExactMatch(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	addrBob := h.address(t, bob)
	addrAlice := h.fund(t, alice, 52)

	small := makeTransfer(alice, addrBob, 9, 1)
	large := makeTransfer(alice, addrBob, 41, 1)
	h.pool.AddReady([]*types.Transaction{small, large})

	// New confirmed balance 10: deficit is exactly the large spend. The
	// confirmed transfer differs from large so that large leaves the
	// pool through eviction, not as the confirmed transaction.
	confirmed := makeTransfer(alice, addrBob, 40, 2)
	h.accounts.SetAccount(&types.Account{
		Address:   addrAlice,
		PublicKey: alice.PublicHex(),
		Balance:   big.NewInt(10),
	})
	h.pool.SanitizeTransactions([]*types.Transaction{confirmed})

	ready := h.pool.GetReady(0)
	require.Len(t, ready, 1)
	assert.Equal(t, small.Id, ready[0].Id)
}

func TestExpiry(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	h.fund(t, alice, 100)

	tx := makeTransfer(alice, h.address(t, bob), 10, 1)
	require.NoError(t, h.pool.ProcessTransaction(tx, false))

	// Fresh transactions survive the sweep.
	h.pool.ExpireTransactions()
	_, status := h.pool.Get(tx.Id)
	require.Equal(t, StatusReady, status)

	h.pool.mtx.Lock()
	h.pool.ready[tx.Id].Added = time.Now().Add(-time.Duration(params.UnconfirmedTransactionTimeout+1) * time.Second)
	h.pool.mtx.Unlock()

	h.pool.ExpireTransactions()
	_, status = h.pool.Get(tx.Id)
	assert.Equal(t, StatusNotInPool, status)
}

// Multisignature registrations expire after their configured lifetime,
// not after the base timeout.
func TestExpiryMultisigLifetime(t *testing.T) {
	h := newHarness(t, 10)
	alice := keyFromSecret(t, "alice")
	carol := keyFromSecret(t, "carol")
	dave := keyFromSecret(t, "dave")
	h.fund(t, alice, 100)

	tx := makeMulti(alice, 5, 2, 1, carol, dave)
	require.NoError(t, h.pool.ProcessTransaction(tx, false))

	h.pool.mtx.Lock()
	h.pool.pending[tx.Id].Added = time.Now().Add(-30 * time.Minute)
	h.pool.mtx.Unlock()
	h.pool.ExpireTransactions()
	_, status := h.pool.Get(tx.Id)
	require.Equal(t, StatusPending, status)

	h.pool.mtx.Lock()
	h.pool.pending[tx.Id].Added = time.Now().Add(-61 * time.Minute)
	h.pool.mtx.Unlock()
	h.pool.ExpireTransactions()
	_, status = h.pool.Get(tx.Id)
	assert.Equal(t, StatusNotInPool, status)
}

// Every id lives in exactly one list, across the operations that move
// transactions around.
func TestListsDisjoint(t *testing.T) {
	h := newHarness(t, 20)
	alice := keyFromSecret(t, "alice")
	bob := keyFromSecret(t, "bob")
	carol := keyFromSecret(t, "carol")
	dave := keyFromSecret(t, "dave")
	h.fund(t, alice, 1000)

	require.NoError(t, h.pool.ProcessTransaction(makeTransfer(alice, h.address(t, bob), 10, 1), false))
	require.NoError(t, h.pool.ProcessTransaction(makeMulti(alice, 5, 2, 24, carol, dave), false))
	require.NoError(t, h.pool.AddFromPeer([]*types.Transaction{makeTransfer(alice, h.address(t, bob), 20, 1)}, false))
	h.pool.ProcessPool()

	h.pool.mtx.RLock()
	defer h.pool.mtx.RUnlock()
	seen := make(map[string]int)
	for _, list := range []map[string]*TxDesc{h.pool.unverified, h.pool.pending, h.pool.ready} {
		for id := range list {
			seen[id]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "transaction %s is in %d lists", id, n)
	}
}
