// Copyright (c) 2017-2020 The lyra developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.
package mempool

import (
	"math/big"
	"time"

	"github.com/lyrachain/lyra/common/jobs"
	"github.com/lyrachain/lyra/core/event"
	"github.com/lyrachain/lyra/core/types"
	"github.com/lyrachain/lyra/crypto"
)

const (
	// DefaultStorageLimit bounds the total number of transactions held
	// across the unverified, pending and ready lists.
	DefaultStorageLimit = 4000

	// DefaultProcessInterval is the default cadence of the promotion
	// tick.
	DefaultProcessInterval = 30 * time.Second

	// DefaultExpiryInterval is the default cadence of the expiry sweep
	// and the invalid cache reset.
	DefaultExpiryInterval = 30 * time.Second
)

// AccountStore is the view of confirmed account state the pool consults
// during admission.
type AccountStore interface {
	// GetSender resolves the account a public key spends from.
	GetSender(publicKey string) (*types.Account, error)

	// GetAccount returns the account of a public key, or nil when no
	// such account exists.
	GetAccount(publicKey string) (*types.Account, error)

	// GenerateAddressByPublicKey derives the address of a public key.
	GenerateAddressByPublicKey(publicKey string) (string, error)

	// GetBalance returns the confirmed balance of an address, zero
	// when the address is unknown.
	GetBalance(address string) *big.Int
}

// TxLogic validates transactions and produces multisignature
// co-signatures.
type TxLogic interface {
	Process(t *types.Transaction, sender *types.Account, requester *types.Account) error
	Verify(t *types.Transaction, sender *types.Account) error
	Multisign(kp *crypto.KeyPair, t *types.Transaction) (string, error)
}

// Policy defines the tunable admission and scheduling knobs of the
// pool.
type Policy struct {
	// StorageLimit bounds |unverified| + |pending| + |ready|. The
	// invalid cache does not count toward the limit.
	StorageLimit int

	// ProcessInterval is the time between promotion ticks.
	ProcessInterval time.Duration

	// ExpiryInterval is the time between expiry sweeps. The invalid
	// cache reset rides the same cadence.
	ExpiryInterval time.Duration
}

// Config is a descriptor containing the transaction pool configuration.
type Config struct {
	// Policy defines the various mempool configuration options related
	// to policy.
	Policy Policy

	// Accounts is the store of confirmed account state.
	Accounts AccountStore

	// TxLogic validates transactions and produces co-signatures.
	TxLogic TxLogic

	// Events is the bus broadcast batches are published on.
	Events *event.Bus

	// Jobs drives the periodic promotion, expiry and invalid-reset
	// work.
	Jobs *jobs.Queue
}
