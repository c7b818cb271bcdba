// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"crypto/sha256"
	"fmt"

	"github.com/lyrachain/lyra/crypto"
)

// AddSignature derives a key pair from the given secret and appends the
// resulting co-signature to a pending multisignature transaction. The
// signer's public key must be a member of the transaction's keysgroup
// and must not have signed already. The transaction stays in pending
// until the promotion tick observes enough signatures.
//
// This function is safe for concurrent access.
func (mp *TxPool) AddSignature(id string, secret string) error {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	desc, exists := mp.pending[id]
	if !exists {
		str := fmt.Sprintf("transaction %s not in pool", id)
		return txRuleError(ErrNotInPool, str)
	}
	t := desc.Tx

	seed := sha256.Sum256([]byte(secret))
	kp, err := crypto.MakeKeypair(seed[:])
	if err != nil {
		return err
	}

	member := "+" + kp.PublicHex()
	ms := t.MultiSignature()
	if ms == nil || !containsKey(ms.Keysgroup, member) {
		str := fmt.Sprintf("permission denied, %s is not a keysgroup member of transaction %s",
			kp.PublicHex(), id)
		return txRuleError(ErrPermissionDenied, str)
	}

	sig, err := mp.cfg.TxLogic.Multisign(kp, t)
	if err != nil {
		return err
	}
	if t.HasSignature(sig) {
		str := fmt.Sprintf("transaction %s already signed by %s", id, kp.PublicHex())
		return txRuleError(ErrAlreadySigned, str)
	}
	t.Signatures = append(t.Signatures, sig)

	log.Debug("Added multisignature", "tx", id, "signer", kp.PublicHex(),
		"collected", len(t.Signatures))
	return nil
}

func containsKey(keysgroup []string, key string) bool {
	for _, k := range keysgroup {
		if k == key {
			return true
		}
	}
	return false
}
