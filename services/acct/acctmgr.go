// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package acct

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/ripemd160"

	"github.com/lyrachain/lyra/core/types"
	"github.com/lyrachain/lyra/node/service"
	"github.com/lyrachain/lyra/params"
	"github.com/lyrachain/lyra/rpc/api"
)

// AccountManager tracks the confirmed state of every known account and
// answers the lookups the transaction pool performs during admission.
type AccountManager struct {
	service.Service

	mtx      sync.RWMutex
	accounts map[string]*types.Account
}

func New() (*AccountManager, error) {
	a := AccountManager{
		accounts: make(map[string]*types.Account),
	}
	return &a, nil
}

func (a *AccountManager) APIs() []api.API {
	return []api.API{
		{
			NameSpace: api.DefaultServiceNameSpace,
			Service:   NewPublicAccountManagerAPI(a),
			Public:    true,
		},
	}
}

// GenerateAddressByPublicKey derives the address of a hex-encoded
// public key: base58check over ripemd160(sha256(pubkey)).
func (a *AccountManager) GenerateAddressByPublicKey(publicKey string) (string, error) {
	pub, err := hex.DecodeString(publicKey)
	if err != nil {
		return "", fmt.Errorf("malformed public key %q: %v", publicKey, err)
	}
	if len(pub) == 0 {
		return "", fmt.Errorf("empty public key")
	}
	sha := sha256.Sum256(pub)
	h := ripemd160.New()
	h.Write(sha[:])
	return base58.CheckEncode(h.Sum(nil), params.AddressVersion), nil
}

// GetSender resolves the account a public key spends from. Unknown keys
// resolve to a zero-balance view so solvency rejects them downstream
// instead of the lookup failing.
func (a *AccountManager) GetSender(publicKey string) (*types.Account, error) {
	address, err := a.GenerateAddressByPublicKey(publicKey)
	if err != nil {
		return nil, err
	}

	a.mtx.RLock()
	acct, ok := a.accounts[address]
	a.mtx.RUnlock()
	if ok {
		return acct, nil
	}
	return &types.Account{
		Address:   address,
		PublicKey: publicKey,
		Balance:   new(big.Int),
	}, nil
}

// GetAccount returns the stored account of a public key, or nil when
// the account does not exist.
func (a *AccountManager) GetAccount(publicKey string) (*types.Account, error) {
	address, err := a.GenerateAddressByPublicKey(publicKey)
	if err != nil {
		return nil, err
	}

	a.mtx.RLock()
	acct := a.accounts[address]
	a.mtx.RUnlock()
	return acct, nil
}

// GetBalance returns the confirmed balance of an address, zero when the
// address is unknown.
func (a *AccountManager) GetBalance(address string) *big.Int {
	a.mtx.RLock()
	acct := a.accounts[address]
	a.mtx.RUnlock()
	return acct.GetBalance()
}

// SetAccount stores or replaces an account record.
func (a *AccountManager) SetAccount(acct *types.Account) {
	a.mtx.Lock()
	a.accounts[acct.Address] = acct
	a.mtx.Unlock()
}

// AdjustBalance applies a signed delta to the confirmed balance of an
// address, creating the account when it is unknown.
func (a *AccountManager) AdjustBalance(address string, delta *big.Int) {
	a.mtx.Lock()
	acct, ok := a.accounts[address]
	if !ok {
		acct = &types.Account{Address: address, Balance: new(big.Int)}
		a.accounts[address] = acct
	}
	acct.Balance = new(big.Int).Add(acct.GetBalance(), delta)
	a.mtx.Unlock()

	log.Debug("Adjusted account balance", "address", address, "delta", delta)
}

// Count returns the number of stored accounts.
func (a *AccountManager) Count() int {
	a.mtx.RLock()
	n := len(a.accounts)
	a.mtx.RUnlock()
	return n
}
