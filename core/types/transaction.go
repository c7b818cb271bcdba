// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"math/big"
)

// TxType is the registered type tag of a transaction. The tag selects
// the validation rules and the asset layout.
type TxType int

const (
	// TxTypeSend transfers funds from the sender to a recipient.
	TxTypeSend TxType = iota

	// TxTypeSignature registers a second signature for the sender.
	TxTypeSignature

	// TxTypeDelegate registers the sender as a delegate.
	TxTypeDelegate

	// TxTypeVote casts votes for delegates.
	TxTypeVote

	// TxTypeMulti registers a multisignature group for the sender.
	TxTypeMulti
)

// String returns the TxType as a human-readable name.
func (t TxType) String() string {
	switch t {
	case TxTypeSend:
		return "send"
	case TxTypeSignature:
		return "signature"
	case TxTypeDelegate:
		return "delegate"
	case TxTypeVote:
		return "vote"
	case TxTypeMulti:
		return "multisignature"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// IsKnown returns whether the type tag is one of the registered types.
func (t TxType) IsKnown() bool {
	return t >= TxTypeSend && t <= TxTypeMulti
}

// MultiSignatureAsset carries the parameters of a multisignature group
// registration. Keysgroup entries are "+"-prefixed hex public keys of
// the allowed co-signers.
type MultiSignatureAsset struct {
	Min       int
	Lifetime  int
	Keysgroup []string
}

// Asset holds the optional per-type payload of a transaction. Only the
// field matching the transaction type is populated.
type Asset struct {
	MultiSignature *MultiSignatureAsset
}

// Transaction is a standalone account-model transaction. Amount and Fee
// are arbitrary precision and never negative.
type Transaction struct {
	Id                 string
	Type               TxType
	SenderPublicKey    string
	SenderId           string
	RequesterPublicKey string
	RecipientId        string
	RecipientPublicKey string
	Amount             *big.Int
	Fee                *big.Int
	Timestamp          int64

	// Signature is the primary signature of the sender (or the
	// requester on behalf of a multisignature account).
	Signature string

	// Signatures holds co-signer signatures while a multi-party
	// signing round is underway. A non-nil empty list means the round
	// has started and no co-signer has signed yet.
	Signatures []string

	Asset Asset
}

// GetAmount returns the transaction amount, treating an absent amount
// as zero.
func (tx *Transaction) GetAmount() *big.Int {
	if tx.Amount == nil {
		return new(big.Int)
	}
	return tx.Amount
}

// GetFee returns the transaction fee, treating an absent fee as zero.
func (tx *Transaction) GetFee() *big.Int {
	if tx.Fee == nil {
		return new(big.Int)
	}
	return tx.Fee
}

// TotalSpend returns amount+fee, the debit the transaction applies to
// the sender balance.
func (tx *Transaction) TotalSpend() *big.Int {
	return new(big.Int).Add(tx.GetAmount(), tx.GetFee())
}

// MultiSignature returns the multisignature asset, or nil when the
// transaction does not carry one.
func (tx *Transaction) MultiSignature() *MultiSignatureAsset {
	return tx.Asset.MultiSignature
}

// HasSignaturesList returns whether a multi-party signing round is
// underway, i.e. the co-signature list has been initialised. The
// distinction between nil and empty is deliberate.
func (tx *Transaction) HasSignaturesList() bool {
	return tx.Signatures != nil
}

// HasSignature returns whether sig is already present in the
// co-signature list.
func (tx *Transaction) HasSignature(sig string) bool {
	for _, s := range tx.Signatures {
		if s == sig {
			return true
		}
	}
	return false
}
