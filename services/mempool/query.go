// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/lyrachain/lyra/core/types"
)

// QueryParams narrows a GetAll enumeration.
type QueryParams struct {
	// Reverse flips the receivedAt ordering of list filters.
	Reverse bool

	// Limit truncates the result when positive.
	Limit int

	// Address is matched by the sender_id and recipient_id filters.
	Address string

	// PublicKey is matched by the sender_pk and recipient_pk filters.
	PublicKey string
}

// MatchedLists groups the transactions of each list that matched a
// field filter.
type MatchedLists struct {
	Unverified []*types.Transaction
	Pending    []*types.Transaction
	Ready      []*types.Transaction
}

// Usage reports the occupancy of every pool container.
type Usage struct {
	Unverified int
	Pending    int
	Ready      int
	Invalid    int
	Total      int
}

// Get returns the transaction with the given id along with the list it
// was found in. The lists are scanned in the order unverified, pending,
// ready.
//
// This function is safe for concurrent access.
func (mp *TxPool) Get(id string) (*types.Transaction, TxStatus) {
	mp.mtx.RLock()
	desc, status := mp.fetchTransaction(id)
	mp.mtx.RUnlock()

	if desc == nil {
		return nil, status
	}
	return desc.Tx, status
}

// GetAll enumerates pool content by filter. The list filters
// ("unverified", "pending", "ready") return the matching list ordered
// by receivedAt ascending, optionally reversed and truncated. The field
// filters ("sender_id", "sender_pk", "recipient_id", "recipient_pk")
// return the matching sublists of every list. An unknown filter yields
// a diagnostic string, preserved for API compatibility.
//
// This function is safe for concurrent access.
func (mp *TxPool) GetAll(filter string, q QueryParams) interface{} {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	switch filter {
	case "unverified":
		return mp.sortedList(mp.unverified, q)
	case "pending":
		return mp.sortedList(mp.pending, q)
	case "ready":
		return mp.sortedList(mp.ready, q)
	case "sender_id":
		return mp.matchLists(func(t *types.Transaction) bool { return t.SenderId == q.Address })
	case "sender_pk":
		return mp.matchLists(func(t *types.Transaction) bool { return t.SenderPublicKey == q.PublicKey })
	case "recipient_id":
		return mp.matchLists(func(t *types.Transaction) bool { return t.RecipientId == q.Address })
	case "recipient_pk":
		return mp.matchLists(func(t *types.Transaction) bool { return t.RecipientPublicKey == q.PublicKey })
	}
	return fmt.Sprintf("Invalid filter: %s", filter)
}

// sortedList flattens a list ordered by receivedAt ascending with the
// transaction id as tie breaker.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) sortedList(list map[string]*TxDesc, q QueryParams) []*types.Transaction {
	descs := make([]*TxDesc, 0, len(list))
	for _, desc := range list {
		descs = append(descs, desc)
	}
	sort.Slice(descs, func(i, j int) bool {
		if !descs[i].Added.Equal(descs[j].Added) {
			return descs[i].Added.Before(descs[j].Added)
		}
		return descs[i].Tx.Id < descs[j].Tx.Id
	})
	if q.Reverse {
		for i, j := 0, len(descs)-1; i < j; i, j = i+1, j-1 {
			descs[i], descs[j] = descs[j], descs[i]
		}
	}
	if q.Limit > 0 && q.Limit < len(descs) {
		descs = descs[:q.Limit]
	}

	txs := make([]*types.Transaction, 0, len(descs))
	for _, desc := range descs {
		txs = append(txs, desc.Tx)
	}
	return txs
}

// matchLists collects the transactions of every list matching the
// predicate.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) matchLists(match func(*types.Transaction) bool) *MatchedLists {
	collect := func(list map[string]*TxDesc) []*types.Transaction {
		var txs []*types.Transaction
		for _, desc := range list {
			if match(desc.Tx) {
				txs = append(txs, desc.Tx)
			}
		}
		return txs
	}
	return &MatchedLists{
		Unverified: collect(mp.unverified),
		Pending:    collect(mp.pending),
		Ready:      collect(mp.ready),
	}
}

// GetReady returns the forger view: the ready list ordered by fee
// descending, then receivedAt ascending, then id descending, truncated
// to limit when positive. The id tie break keeps the ordering
// deterministic across forgers sharing a pool snapshot.
//
// This function is safe for concurrent access.
func (mp *TxPool) GetReady(limit int) []*types.Transaction {
	mp.mtx.RLock()
	descs := make([]*TxDesc, 0, len(mp.ready))
	for _, desc := range mp.ready {
		descs = append(descs, desc)
	}
	mp.mtx.RUnlock()

	sort.Slice(descs, func(i, j int) bool {
		if c := descs[i].Tx.GetFee().Cmp(descs[j].Tx.GetFee()); c != 0 {
			return c > 0
		}
		if !descs[i].Added.Equal(descs[j].Added) {
			return descs[i].Added.Before(descs[j].Added)
		}
		return descs[i].Tx.Id > descs[j].Tx.Id
	})
	if limit > 0 && limit < len(descs) {
		descs = descs[:limit]
	}

	txs := make([]*types.Transaction, 0, len(descs))
	for _, desc := range descs {
		txs = append(txs, desc.Tx)
	}
	return txs
}

// GetUsage reports how full every container is.
//
// This function is safe for concurrent access.
func (mp *TxPool) GetUsage() Usage {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	return Usage{
		Unverified: len(mp.unverified),
		Pending:    len(mp.pending),
		Ready:      len(mp.ready),
		Invalid:    mp.invalid.Cardinality(),
		Total:      mp.count(),
	}
}

// removeTransaction is the internal function which implements the
// public RemoveTransaction.  See the comment for RemoveTransaction for
// more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransaction(id string) (TxStatus, bool) {
	first := StatusNotInPool
	hits := 0
	for _, entry := range []struct {
		status TxStatus
		list   map[string]*TxDesc
	}{
		{StatusUnverified, mp.unverified},
		{StatusPending, mp.pending},
		{StatusReady, mp.ready},
	} {
		if !mp.removeById(entry.list, id) {
			continue
		}
		hits++
		if first == StatusNotInPool {
			first = entry.status
		}
	}
	if hits > 1 {
		log.Debug("Transaction removed from multiple lists", "tx", id, "lists", hits)
	}
	return first, hits > 0
}

// RemoveTransaction removes the passed id from every list, returning
// the first list that held it. An id present in more than one list is
// an invariant violation and is surfaced at debug level.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(id string) (TxStatus, bool) {
	mp.mtx.Lock()
	status, found := mp.removeTransaction(id)
	mp.mtx.Unlock()

	return status, found
}

// AddReady unconditionally moves a batch into the ready list under a
// shared fresh receivedAt. The block producer uses it to roll
// transactions back from a failed block.
//
// This function is safe for concurrent access.
func (mp *TxPool) AddReady(txs []*types.Transaction) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	now := time.Now()
	for _, t := range txs {
		mp.removeTransaction(t.Id)
		mp.augment(t)
		mp.insert(mp.ready, &TxDesc{Tx: t, Added: now})
	}
}

// SanitizeTransactions reconciles the pool with a just-applied block.
// Every confirmed transaction is deleted; when its sender still has
// ready transactions and the projection has gone underwater, ready
// transactions are evicted until the sender is solvent again.
//
// This function is safe for concurrent access.
func (mp *TxPool) SanitizeTransactions(txs []*types.Transaction) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, t := range txs {
		mp.removeTransaction(t.Id)

		address := t.SenderId
		if address == "" {
			derived, err := mp.cfg.Accounts.GenerateAddressByPublicKey(t.SenderPublicKey)
			if err != nil {
				continue
			}
			address = derived
		}
		if !mp.senderHasReady(address) {
			continue
		}
		projected := mp.projectedBalance(address)
		if projected.Sign() >= 0 {
			continue
		}
		mp.creditPop(address, projected)
	}
}

// senderHasReady reports whether the address has at least one ready
// transaction.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) senderHasReady(address string) bool {
	for _, desc := range mp.ready {
		if desc.Tx.SenderId == address {
			return true
		}
	}
	return false
}

// creditPop evicts ready transactions of an underwater sender until the
// projected balance is non-negative. A single transaction whose
// amount+fee exactly cancels the deficit is preferred; otherwise the
// largest spends go first, with the id as tie breaker.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) creditPop(address string, projected *big.Int) {
	var candidates []*TxDesc
	for _, desc := range mp.ready {
		if desc.Tx.SenderId == address {
			candidates = append(candidates, desc)
		}
	}

	for _, desc := range candidates {
		if new(big.Int).Add(projected, desc.Tx.TotalSpend()).Sign() == 0 {
			candidates = []*TxDesc{desc}
			break
		}
	}
	if len(candidates) > 1 {
		// Ascending, so popping the tail evicts the largest spend.
		sort.Slice(candidates, func(i, j int) bool {
			if c := candidates[i].Tx.TotalSpend().Cmp(candidates[j].Tx.TotalSpend()); c != 0 {
				return c < 0
			}
			return candidates[i].Tx.Id < candidates[j].Tx.Id
		})
	}

	for projected.Sign() < 0 && len(candidates) > 0 {
		desc := candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
		mp.removeById(mp.ready, desc.Tx.Id)
		projected.Add(projected, desc.Tx.TotalSpend())
		log.Debug("Evicted ready transaction to restore solvency",
			"tx", desc.Tx.Id, "sender", address, "projected", projected)
	}
}
