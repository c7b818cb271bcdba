// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"math/big"

	"github.com/lyrachain/lyra/core/types"
)

// projectedBalance computes the spendable balance of an address over
// the pool: the confirmed balance, minus amount+fee of every ready
// transaction the address sends, plus the amount of every ready
// transfer the address receives. Pending transactions do not
// participate; they are not yet committed to block inclusion.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) projectedBalance(address string) *big.Int {
	projected := new(big.Int).Set(mp.cfg.Accounts.GetBalance(address))
	for _, desc := range mp.ready {
		t := desc.Tx
		if t.SenderId == address {
			projected.Sub(projected, t.TotalSpend())
		}
		if t.RecipientId == address && t.Type == types.TxTypeSend {
			projected.Add(projected, t.GetAmount())
		}
	}
	return projected
}

// checkBalance enforces sender solvency for an incoming transaction:
// the projected balance must cover amount plus fee. The projected
// balance is returned in both cases.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) checkBalance(t *types.Transaction, sender *types.Account) (*big.Int, error) {
	projected := mp.projectedBalance(sender.Address)
	if projected.Cmp(t.TotalSpend()) < 0 {
		str := fmt.Sprintf("account %s does not have enough funds: projected balance %s, "+
			"requires %s", sender.Address, projected, t.TotalSpend())
		return projected, txRuleError(ErrInsufficientFunds, str)
	}
	return projected, nil
}

// CheckBalance reports the projected balance of a transaction's sender
// and whether it covers the transaction.
//
// This function is safe for concurrent access.
func (mp *TxPool) CheckBalance(t *types.Transaction, sender *types.Account) (*big.Int, error) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	return mp.checkBalance(t, sender)
}
