// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import "math/big"

// Account is the on-chain state of an address as seen by the pool.
type Account struct {
	Address   string
	PublicKey string
	Balance   *big.Int

	// MultiSignatures lists the hex public keys of the co-signers
	// registered for the account. Non-empty means the account is a
	// multisignature account.
	MultiSignatures []string

	// SecondPublicKey is set once a second signature has been
	// registered via a signature-type transaction.
	SecondPublicKey string
}

// GetBalance returns the account balance, treating an absent balance
// as zero.
func (a *Account) GetBalance() *big.Int {
	if a == nil || a.Balance == nil {
		return new(big.Int)
	}
	return a.Balance
}

// IsMultiSig returns whether the account has a registered
// multisignature group.
func (a *Account) IsMultiSig() bool {
	return a != nil && len(a.MultiSignatures) > 0
}
