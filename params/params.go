// Copyright (c) 2017-2020 The lyra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package params

import "time"

const (
	// SecondsPerHour is used to convert multisignature lifetimes, which
	// are configured in hours, into seconds.
	SecondsPerHour = int64(3600)

	// UnconfirmedTransactionTimeout is the number of seconds an ordinary
	// unconfirmed transaction may sit in the pool before the expiry
	// worker removes it.
	UnconfirmedTransactionTimeout = int64(10800)

	// SignatureTransactionTimeoutMultiplier extends the timeout of
	// transactions that are collecting additional signatures.
	SignatureTransactionTimeoutMultiplier = int64(4)

	// AddressVersion is the version byte prepended to the public key
	// hash before base58check encoding.
	AddressVersion = byte(0x0c)
)

// MainNetParams groups the parameters the pool needs from the currently
// active network.
type MainNetParams struct {
	// GenesisTime anchors transaction timestamps. A transaction
	// timestamp is the number of seconds elapsed since this instant.
	GenesisTime time.Time
}

// activeNetParams is a pointer to the parameters specific to the
// currently active network.
var activeNetParams = &MainNetParams{
	GenesisTime: time.Date(2018, time.May, 24, 17, 0, 0, 0, time.UTC),
}

// ActiveNetParams returns the parameters of the active network.
func ActiveNetParams() *MainNetParams {
	return activeNetParams
}

// RealTime converts a chain-relative transaction timestamp into wall
// clock time.
func RealTime(timestamp int64) time.Time {
	return activeNetParams.GenesisTime.Add(time.Duration(timestamp) * time.Second)
}

// ChainTime converts wall clock time into a chain-relative timestamp.
func ChainTime(t time.Time) int64 {
	return int64(t.Sub(activeNetParams.GenesisTime) / time.Second)
}
