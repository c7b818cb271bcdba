// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	mapset "github.com/deckarep/golang-set"

	"github.com/lyrachain/lyra/core/types"
	"github.com/lyrachain/lyra/params"
)

const (
	// BroadcastTopic is the bus topic outbound batches are published
	// on. The historical name refers to the batch, not the pool list.
	BroadcastTopic = "unverifiedTransaction"

	processJobName      = "transactionPoolNextProcess"
	expiryJobName       = "transactionPoolNextExpiryTransactions"
	invalidResetJobName = "transactionPoolNextInvalidTransactionsReset"
)

// Start registers the periodic pool jobs with the scheduler.
func (mp *TxPool) Start() error {
	if err := mp.Service.Start(); err != nil {
		return err
	}

	mp.cfg.Jobs.Register(processJobName, mp.cfg.Policy.ProcessInterval, mp.ProcessPool)
	mp.cfg.Jobs.Register(expiryJobName, mp.cfg.Policy.ExpiryInterval, mp.ExpireTransactions)
	mp.cfg.Jobs.Register(invalidResetJobName, mp.cfg.Policy.ExpiryInterval, mp.ResetInvalidTransactions)

	log.Info("Transaction pool started",
		"storage limit", mp.cfg.Policy.StorageLimit,
		"process interval", mp.cfg.Policy.ProcessInterval,
		"expiry interval", mp.cfg.Policy.ExpiryInterval)
	return nil
}

// Stop unregisters the periodic pool jobs. In-flight ticks are allowed
// to complete.
func (mp *TxPool) Stop() error {
	if err := mp.Service.Stop(); err != nil {
		return err
	}

	mp.cfg.Jobs.Unregister(processJobName)
	mp.cfg.Jobs.Unregister(expiryJobName)
	mp.cfg.Jobs.Unregister(invalidResetJobName)

	log.Info("Transaction pool stopped")
	return nil
}

// ProcessPool runs one promotion tick: Phase A drains the unverified
// list through full verification, Phase B promotes fully signed
// multisignature transactions, and the accumulated broadcast batch is
// published as a single bus message.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessPool() {
	mp.mtx.Lock()
	mp.processUnverified()
	mp.promotePending()
	batch := mp.drainOutbox()
	mp.mtx.Unlock()

	if len(batch) > 0 {
		mp.cfg.Events.Message(BroadcastTopic, batch)
		log.Debug("Published broadcast batch", "count", len(batch))
	}
}

// processUnverified is Phase A of the promotion tick: every unverified
// transaction is removed and taken through sender resolution,
// verification and the solvency check. Failures are logged and the
// transaction is discarded; only verification failures are cached as
// invalid. The unique-type rule is not applied on this path.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) processUnverified() {
	for id, desc := range mp.unverified {
		mp.removeById(mp.unverified, id)

		sender, err := mp.cfg.Accounts.GetSender(desc.Tx.SenderPublicKey)
		if err != nil {
			log.Debug("Discarding unverified transaction", "tx", id, "error", err)
			continue
		}
		if err := mp.cfg.TxLogic.Verify(desc.Tx, sender); err != nil {
			mp.invalid.Add(id)
			log.Debug("Discarding unverified transaction", "tx", id, "error", err)
			continue
		}
		if _, err := mp.checkBalance(desc.Tx, sender); err != nil {
			log.Debug("Discarding unverified transaction", "tx", id, "error", err)
			continue
		}
		mp.route(desc)
	}
}

// promotePending is Phase B of the promotion tick: multisignature
// registrations that have collected enough co-signatures move to the
// ready list. Every other pending transaction (future-dated, or a
// non-multisignature spend collecting co-signatures) is left in place;
// this phase never promotes it, and it leaves pending only through
// expiry or explicit removal.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) promotePending() {
	for id, desc := range mp.pending {
		t := desc.Tx
		ms := t.MultiSignature()
		if t.Type != types.TxTypeMulti || ms == nil {
			continue
		}
		if len(t.Signatures) < ms.Min {
			continue
		}
		delete(mp.pending, id)
		mp.insert(mp.ready, desc)
		mp.enqueueBroadcast(desc)
		mp.promotedCtr.Inc(1)
		log.Debug("Promoted multisignature transaction", "tx", id,
			"signatures", len(t.Signatures), "min", ms.Min)
	}
}

// drainOutbox empties the broadcast outbox and returns its
// transactions.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) drainOutbox() []*types.Transaction {
	if len(mp.outbox) == 0 {
		return nil
	}
	batch := make([]*types.Transaction, 0, len(mp.outbox))
	for _, desc := range mp.outbox {
		batch = append(batch, desc.Tx)
	}
	mp.outbox = nil
	return batch
}

// txTimeout returns the maximum age, in seconds, a transaction may
// reach before the expiry worker removes it.
func txTimeout(t *types.Transaction) int64 {
	if ms := t.MultiSignature(); t.Type == types.TxTypeMulti && ms != nil {
		return int64(ms.Lifetime) * params.SecondsPerHour
	}
	if t.HasSignaturesList() {
		return params.UnconfirmedTransactionTimeout * params.SignatureTransactionTimeoutMultiplier
	}
	return params.UnconfirmedTransactionTimeout
}

// ExpireTransactions removes transactions that have outlived their
// per-type timeout from every list.
//
// This function is safe for concurrent access.
func (mp *TxPool) ExpireTransactions() {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	now := time.Now()
	for _, list := range []map[string]*TxDesc{mp.unverified, mp.pending, mp.ready} {
		for id, desc := range list {
			age := int64(now.Sub(desc.Added) / time.Second)
			if age <= txTimeout(desc.Tx) {
				continue
			}
			mp.removeById(list, id)
			mp.expiredCtr.Inc(1)
			log.Info("Expired transaction", "tx", id, "age", age, "type", desc.Tx.Type)
		}
	}
}

// ResetInvalidTransactions clears the invalid id cache, giving
// previously rejected ids another chance after account state changes.
//
// This function is safe for concurrent access.
func (mp *TxPool) ResetInvalidTransactions() {
	mp.mtx.Lock()
	count := mp.invalid.Cardinality()
	mp.invalid = mapset.NewSet()
	mp.mtx.Unlock()

	if count > 0 {
		log.Debug("Reset invalid transaction cache", "count", count)
	}
}
