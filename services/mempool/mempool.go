// Copyright (c) 2017-2020 The lyra developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.
package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	mapset "github.com/deckarep/golang-set"

	"github.com/lyrachain/lyra/core/types"
	"github.com/lyrachain/lyra/metrics"
	"github.com/lyrachain/lyra/node/service"
	"github.com/lyrachain/lyra/params"
)

// TxStatus labels the list a transaction currently sits in.
type TxStatus int

const (
	// StatusNotInPool means the id is unknown to the pool.
	StatusNotInPool TxStatus = iota

	// StatusUnverified means the transaction was accepted from a peer
	// and still awaits full verification.
	StatusUnverified

	// StatusPending means the transaction is verified but not yet
	// eligible for block inclusion.
	StatusPending

	// StatusReady means the transaction is verified, solvent and
	// eligible for block inclusion.
	StatusReady
)

// String returns the TxStatus as the historical list label.
func (s TxStatus) String() string {
	switch s {
	case StatusUnverified:
		return "unverified"
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	}
	return "not in pool"
}

// TxDesc is a descriptor containing a transaction in the pool along
// with additional metadata.
type TxDesc struct {
	Tx *types.Transaction

	// Added is the wall-clock time the transaction entered the pool.
	// Expiry and the future-timestamp routing rule count from it.
	Added time.Time

	// Broadcast marks the transaction for the outbound batch when it
	// reaches the ready list. The flag is cleared on enqueue.
	Broadcast bool
}

// TxPool is the staging area for transactions that need to be forged
// into blocks and relayed to other peers. It is safe for concurrent
// access.
type TxPool struct {
	service.Service

	// The following variables must only be used atomically.
	lastUpdated int64 // last time pool was updated.

	mtx        sync.RWMutex
	cfg        Config
	unverified map[string]*TxDesc
	pending    map[string]*TxDesc
	ready      map[string]*TxDesc
	invalid    mapset.Set
	outbox     []*TxDesc

	acceptedCtr metrics.Counter
	rejectedCtr metrics.Counter
	promotedCtr metrics.Counter
	expiredCtr  metrics.Counter
}

// New returns a new transaction pool for validating and staging
// standalone transactions until they are forged into a block.
func New(cfg *Config) *TxPool {
	mp := &TxPool{
		cfg:        *cfg,
		unverified: make(map[string]*TxDesc),
		pending:    make(map[string]*TxDesc),
		ready:      make(map[string]*TxDesc),
		invalid:    mapset.NewSet(),

		acceptedCtr: metrics.NewCounter("mempool.accepted"),
		rejectedCtr: metrics.NewCounter("mempool.rejected"),
		promotedCtr: metrics.NewCounter("mempool.promoted"),
		expiredCtr:  metrics.NewCounter("mempool.expired"),
	}
	if mp.cfg.Policy.StorageLimit == 0 {
		mp.cfg.Policy.StorageLimit = DefaultStorageLimit
	}
	if mp.cfg.Policy.ProcessInterval == 0 {
		mp.cfg.Policy.ProcessInterval = DefaultProcessInterval
	}
	if mp.cfg.Policy.ExpiryInterval == 0 {
		mp.cfg.Policy.ExpiryInterval = DefaultExpiryInterval
	}
	return mp
}

// count returns the number of transactions held across the unverified,
// pending and ready lists. The invalid cache is not counted.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) count() int {
	return len(mp.unverified) + len(mp.pending) + len(mp.ready)
}

// Count returns the number of transactions in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	count := mp.count()
	mp.mtx.RUnlock()

	return count
}

// haveTransaction returns whether or not the passed transaction id
// already exists in any of the unverified, pending or ready lists.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) haveTransaction(id string) bool {
	_, status := mp.fetchTransaction(id)
	return status != StatusNotInPool
}

// HaveTransaction returns whether or not the passed transaction id
// already exists in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) HaveTransaction(id string) bool {
	mp.mtx.RLock()
	have := mp.haveTransaction(id)
	mp.mtx.RUnlock()

	return have
}

// fetchTransaction scans the lists in the order unverified, pending,
// ready and returns the first descriptor found along with its status.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) fetchTransaction(id string) (*TxDesc, TxStatus) {
	if desc, exists := mp.unverified[id]; exists {
		return desc, StatusUnverified
	}
	if desc, exists := mp.pending[id]; exists {
		return desc, StatusPending
	}
	if desc, exists := mp.ready[id]; exists {
		return desc, StatusReady
	}
	return nil, StatusNotInPool
}

// insert places a descriptor into the given list. The insert is
// idempotent: an id that is already present leaves the list unchanged.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) insert(list map[string]*TxDesc, desc *TxDesc) {
	if _, exists := list[desc.Tx.Id]; exists {
		return
	}
	list[desc.Tx.Id] = desc
	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
}

// removeById removes an id from the given list, returning whether it
// was present. Removal is a no-op on miss.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeById(list map[string]*TxDesc, id string) bool {
	if _, exists := list[id]; !exists {
		return false
	}
	delete(list, id)
	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
	return true
}

// checkAdmissible performs the capacity and duplicate checks that gate
// every admission path.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) checkAdmissible(t *types.Transaction) error {
	if mp.invalid.Contains(t.Id) {
		str := fmt.Sprintf("transaction %s already processed as invalid", t.Id)
		return txRuleError(ErrAlreadyInvalid, str)
	}
	if mp.haveTransaction(t.Id) {
		str := fmt.Sprintf("transaction %s already in pool", t.Id)
		return txRuleError(ErrDuplicateInPool, str)
	}
	if mp.count() >= mp.cfg.Policy.StorageLimit {
		return txRuleError(ErrPoolFull, "transaction pool is full")
	}
	return nil
}

// resolveRequester resolves the optional requester account of a spend
// from a multisignature sender. As a side effect it initialises the
// co-signature list of multisignature senders so that collected
// signatures always have somewhere to go.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) resolveRequester(t *types.Transaction, sender *types.Account) (*types.Account, error) {
	if !sender.IsMultiSig() {
		return nil, nil
	}
	if t.Signatures == nil {
		t.Signatures = []string{}
	}
	if t.RequesterPublicKey == "" {
		return nil, nil
	}
	requester, err := mp.cfg.Accounts.GetAccount(t.RequesterPublicKey)
	if err != nil {
		str := fmt.Sprintf("failed to resolve requester of transaction %s: %v", t.Id, err)
		return nil, txRuleError(ErrSenderLookup, str)
	}
	if requester == nil {
		str := fmt.Sprintf("requester of transaction %s not found", t.Id)
		return nil, txRuleError(ErrRequesterNotFound, str)
	}
	return requester, nil
}

// uniqueTypes are the transaction types of which a sender may have at
// most one in the ready list.
var uniqueTypes = map[types.TxType]struct{}{
	types.TxTypeSignature: {},
	types.TxTypeDelegate:  {},
	types.TxTypeMulti:     {},
}

// checkTypeInPool enforces the unique-per-sender type rule over the
// ready list.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) checkTypeInPool(t *types.Transaction) error {
	if _, restricted := uniqueTypes[t.Type]; !restricted {
		return nil
	}
	for _, desc := range mp.ready {
		if desc.Tx.SenderPublicKey != t.SenderPublicKey {
			continue
		}
		if _, restricted := uniqueTypes[desc.Tx.Type]; restricted {
			str := fmt.Sprintf("transaction type %s already in pool for sender %s",
				t.Type, t.SenderPublicKey)
			return txRuleError(ErrDuplicateTypeForSender, str)
		}
	}
	return nil
}

// augment fills in the derived sender address when the transaction
// arrived without one. Pool lists only ever hold transactions with a
// resolved SenderId.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) augment(t *types.Transaction) {
	if t.SenderId != "" {
		return
	}
	address, err := mp.cfg.Accounts.GenerateAddressByPublicKey(t.SenderPublicKey)
	if err != nil {
		log.Debug("Failed to derive sender address", "tx", t.Id, "error", err)
		return
	}
	t.SenderId = address
}

// route places a verified descriptor into pending or ready. A
// transaction goes to pending when it registers a multisignature group,
// when a multi-party signing round is underway, or when its timestamp
// lies in the future relative to its arrival time. Otherwise it becomes
// ready and, when marked for broadcast, joins the outbound batch.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) route(desc *TxDesc) {
	t := desc.Tx
	if t.Type == types.TxTypeMulti || t.HasSignaturesList() ||
		params.RealTime(t.Timestamp).After(desc.Added) {
		mp.insert(mp.pending, desc)
		return
	}
	mp.insert(mp.ready, desc)
	mp.enqueueBroadcast(desc)
}

// enqueueBroadcast moves a descriptor marked for broadcast into the
// outbox and clears the flag.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) enqueueBroadcast(desc *TxDesc) {
	if !desc.Broadcast {
		return
	}
	mp.outbox = append(mp.outbox, desc)
	desc.Broadcast = false
}

// processTransaction is the internal function which implements the
// public ProcessTransaction.  See the comment for ProcessTransaction
// for more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) processTransaction(t *types.Transaction, broadcast bool) error {
	if err := mp.checkAdmissible(t); err != nil {
		return err
	}

	sender, err := mp.cfg.Accounts.GetSender(t.SenderPublicKey)
	if err != nil {
		str := fmt.Sprintf("failed to resolve sender of transaction %s: %v", t.Id, err)
		return txRuleError(ErrSenderLookup, str)
	}

	requester, err := mp.resolveRequester(t, sender)
	if err != nil {
		return err
	}

	if err := mp.cfg.TxLogic.Process(t, sender, requester); err != nil {
		mp.invalid.Add(t.Id)
		str := fmt.Sprintf("failed to process transaction %s: %v", t.Id, err)
		return txRuleError(ErrProcessFailed, str)
	}

	if err := mp.cfg.TxLogic.Verify(t, sender); err != nil {
		mp.invalid.Add(t.Id)
		str := fmt.Sprintf("failed to verify transaction %s: %v", t.Id, err)
		return txRuleError(ErrVerifyFailed, str)
	}

	if err := mp.checkTypeInPool(t); err != nil {
		return err
	}

	if _, err := mp.checkBalance(t, sender); err != nil {
		return err
	}

	mp.augment(t)
	mp.route(&TxDesc{Tx: t, Added: time.Now(), Broadcast: broadcast})

	log.Debug("Accepted transaction", "tx", t.Id, "pool size", mp.count())
	log.Trace("Accepted transaction detail", "tx", newLogClosure(func() string {
		return spew.Sdump(t)
	}))
	return nil
}

// ProcessTransaction is the main workhorse for handling insertion of
// new transactions submitted by local clients. The full admission
// pipeline runs before placement: capacity and duplicate checks, sender
// and requester resolution, transaction logic processing and
// verification, the unique-type rule and the solvency check. Verified
// transactions are placed directly into pending or ready; setting
// broadcast enqueues ready transactions for the next outbound batch.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessTransaction(t *types.Transaction, broadcast bool) error {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	err := mp.processTransaction(t, broadcast)
	if err != nil {
		mp.rejectedCtr.Inc(1)
		log.Trace("Failed to process transaction", "tx", t.Id, "error", err)
		return err
	}
	mp.acceptedCtr.Inc(1)
	return nil
}

// addUnverified runs the light admission stages on a single peer
// transaction and places it into the unverified list.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) addUnverified(t *types.Transaction, broadcast bool) error {
	if err := mp.checkAdmissible(t); err != nil {
		return err
	}

	sender, err := mp.cfg.Accounts.GetSender(t.SenderPublicKey)
	if err != nil {
		str := fmt.Sprintf("failed to resolve sender of transaction %s: %v", t.Id, err)
		return txRuleError(ErrSenderLookup, str)
	}

	requester, err := mp.resolveRequester(t, sender)
	if err != nil {
		return err
	}

	if err := mp.cfg.TxLogic.Process(t, sender, requester); err != nil {
		mp.invalid.Add(t.Id)
		str := fmt.Sprintf("failed to process transaction %s: %v", t.Id, err)
		return txRuleError(ErrProcessFailed, str)
	}

	mp.augment(t)
	mp.insert(mp.unverified, &TxDesc{Tx: t, Added: time.Now(), Broadcast: broadcast})
	return nil
}

// AddFromPeer queues a batch of transactions received from a remote
// peer. Only the cheap admission stages run on the network path;
// cryptographic verification and the solvency check are deferred to the
// promotion tick. Transactions are processed in list order and the
// first failure stops the batch.
//
// This function is safe for concurrent access.
func (mp *TxPool) AddFromPeer(txs []*types.Transaction, broadcast bool) error {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, t := range txs {
		if err := mp.addUnverified(t, broadcast); err != nil {
			mp.rejectedCtr.Inc(1)
			log.Trace("Failed to queue peer transaction", "tx", t.Id, "error", err)
			return err
		}
	}
	return nil
}

// LastUpdated returns the last time a transaction was added to or
// removed from the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}
