// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tx

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/lyrachain/lyra/core/types"
	"github.com/lyrachain/lyra/crypto"
)

const (
	// MaxMultiSigLifetime is the upper bound, in hours, of a
	// multisignature registration lifetime.
	MaxMultiSigLifetime = 72

	// MaxMultiSigKeys bounds the keysgroup size.
	MaxMultiSigKeys = 15
)

// TxLogic validates standalone transactions and produces signatures.
// It is stateless; a single instance serves the whole node.
type TxLogic struct{}

func New() *TxLogic {
	return &TxLogic{}
}

// SignableBytes returns the canonical serialization of everything a
// signature commits to: type, timestamp, sender and requester public
// keys, recipient address, amount, fee and the multisignature asset.
// The id, the sender address, the recipient public key and the
// signatures are not part of it.
func SignableBytes(t *types.Transaction) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(t.Type))

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(t.Timestamp))
	buf.Write(ts[:])

	writeHexField(&buf, t.SenderPublicKey)
	writeHexField(&buf, t.RequesterPublicKey)
	writeStringField(&buf, t.RecipientId)
	writeBigField(&buf, t.GetAmount().Bytes())
	writeBigField(&buf, t.GetFee().Bytes())

	if ms := t.MultiSignature(); ms != nil {
		buf.WriteByte(byte(ms.Min))
		buf.WriteByte(byte(ms.Lifetime))
		writeStringField(&buf, strings.Join(ms.Keysgroup, ""))
	}
	return buf.Bytes()
}

func writeHexField(buf *bytes.Buffer, field string) {
	raw, err := hex.DecodeString(field)
	if err != nil {
		// Malformed hex still has to serialize deterministically;
		// signature verification rejects it later.
		raw = []byte(field)
	}
	writeBigField(buf, raw)
}

func writeStringField(buf *bytes.Buffer, field string) {
	writeBigField(buf, []byte(field))
}

func writeBigField(buf *bytes.Buffer, raw []byte) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(raw)))
	buf.Write(l[:])
	buf.Write(raw)
}

// Digest returns the sha256 digest signatures are made over.
func Digest(t *types.Transaction) []byte {
	sum := sha256.Sum256(SignableBytes(t))
	return sum[:]
}

// IdOf computes the canonical transaction id: the first eight bytes of
// sha256 over the signable bytes followed by the primary signature,
// reversed and rendered as a decimal string.
func IdOf(t *types.Transaction) string {
	var buf bytes.Buffer
	buf.Write(SignableBytes(t))
	if sig, err := hex.DecodeString(t.Signature); err == nil {
		buf.Write(sig)
	}
	sum := sha256.Sum256(buf.Bytes())

	var id uint64
	for i := 0; i < 8; i++ {
		id = id<<8 | uint64(sum[7-i])
	}
	return strconv.FormatUint(id, 10)
}

// Sign produces the hex primary signature of t with the given key pair.
func Sign(kp *crypto.KeyPair, t *types.Transaction) string {
	return hex.EncodeToString(kp.Sign(Digest(t)))
}

// Process performs the stateless sanity checks of a transaction against
// its resolved sender (and requester, when spending from a
// multisignature account).
func (l *TxLogic) Process(t *types.Transaction, sender *types.Account, requester *types.Account) error {
	if t == nil {
		return fmt.Errorf("missing transaction")
	}
	if sender == nil {
		return fmt.Errorf("missing sender")
	}
	if !t.Type.IsKnown() {
		return fmt.Errorf("unknown transaction type %d", int(t.Type))
	}
	if t.Amount != nil && t.Amount.Sign() < 0 {
		return fmt.Errorf("transaction %s has a negative amount", t.Id)
	}
	if t.Fee == nil || t.Fee.Sign() <= 0 {
		return fmt.Errorf("transaction %s has an invalid fee", t.Id)
	}
	if t.Type == types.TxTypeSend && t.RecipientId == "" {
		return fmt.Errorf("transaction %s has no recipient", t.Id)
	}
	if t.RequesterPublicKey != "" && requester == nil {
		return fmt.Errorf("transaction %s names a requester that does not exist", t.Id)
	}
	if t.SenderId != "" && t.SenderId != sender.Address {
		return fmt.Errorf("transaction %s sender address mismatch", t.Id)
	}

	if t.Type == types.TxTypeMulti {
		if err := checkMultiSigAsset(t); err != nil {
			return err
		}
	}

	if id := IdOf(t); id != t.Id {
		return fmt.Errorf("invalid transaction id, expected %s got %s", id, t.Id)
	}
	return nil
}

func checkMultiSigAsset(t *types.Transaction) error {
	ms := t.MultiSignature()
	if ms == nil {
		return fmt.Errorf("transaction %s is missing its multisignature asset", t.Id)
	}
	if ms.Min < 1 || ms.Min > len(ms.Keysgroup) {
		return fmt.Errorf("transaction %s has an invalid multisignature min %d", t.Id, ms.Min)
	}
	if ms.Lifetime < 1 || ms.Lifetime > MaxMultiSigLifetime {
		return fmt.Errorf("transaction %s has an invalid multisignature lifetime %d", t.Id, ms.Lifetime)
	}
	if len(ms.Keysgroup) > MaxMultiSigKeys {
		return fmt.Errorf("transaction %s keysgroup is larger than %d", t.Id, MaxMultiSigKeys)
	}
	for _, key := range ms.Keysgroup {
		if !strings.HasPrefix(key, "+") {
			return fmt.Errorf("transaction %s keysgroup entry %q lacks the + prefix", t.Id, key)
		}
		if _, err := hex.DecodeString(key[1:]); err != nil {
			return fmt.Errorf("transaction %s keysgroup entry %q is not hex", t.Id, key)
		}
	}
	return nil
}

// Verify checks the cryptographic validity of a transaction: the
// primary signature, and every collected co-signature against the
// keysgroup of the multisignature asset.
func (l *TxLogic) Verify(t *types.Transaction, sender *types.Account) error {
	if t == nil || sender == nil {
		return fmt.Errorf("missing transaction or sender")
	}

	// Spends from a multisignature account are signed by the
	// requesting co-signer rather than the account key.
	signerKey := t.SenderPublicKey
	if t.RequesterPublicKey != "" {
		signerKey = t.RequesterPublicKey
	}

	sig, err := hex.DecodeString(t.Signature)
	if err != nil {
		return fmt.Errorf("transaction %s signature is not hex", t.Id)
	}
	digest := Digest(t)
	if !crypto.VerifyHex(signerKey, digest, sig) {
		return fmt.Errorf("failed to verify signature of transaction %s", t.Id)
	}

	if ms := t.MultiSignature(); ms != nil {
		for _, cs := range t.Signatures {
			if err := verifyCoSignature(ms, digest, cs); err != nil {
				return fmt.Errorf("transaction %s: %v", t.Id, err)
			}
		}
	}
	return nil
}

func verifyCoSignature(ms *types.MultiSignatureAsset, digest []byte, sigHex string) error {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("co-signature is not hex")
	}
	for _, key := range ms.Keysgroup {
		if crypto.VerifyHex(strings.TrimPrefix(key, "+"), digest, sig) {
			return nil
		}
	}
	return fmt.Errorf("co-signature does not match any keysgroup member")
}

// Multisign produces the hex co-signature of t with the given key pair.
func (l *TxLogic) Multisign(kp *crypto.KeyPair, t *types.Transaction) (string, error) {
	if t == nil {
		return "", fmt.Errorf("missing transaction")
	}
	if kp == nil {
		return "", fmt.Errorf("missing key pair")
	}
	return hex.EncodeToString(kp.Sign(Digest(t))), nil
}
