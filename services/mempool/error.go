// Copyright (c) 2017-2020 The lyra developers
// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "fmt"

// ErrorCode identifies the kind of admission or signing failure.
type ErrorCode int

const (
	// ErrAlreadyInvalid indicates the transaction id is cached in the
	// invalid set.
	ErrAlreadyInvalid ErrorCode = iota

	// ErrDuplicateInPool indicates the id is already present in one of
	// the unverified, pending or ready lists.
	ErrDuplicateInPool

	// ErrPoolFull indicates the storage limit has been reached.
	ErrPoolFull

	// ErrSenderLookup indicates the account store failed to resolve
	// the sender.
	ErrSenderLookup

	// ErrRequesterNotFound indicates the transaction names a requester
	// public key that has no account.
	ErrRequesterNotFound

	// ErrProcessFailed indicates transaction logic rejected the
	// transaction during processing. The id is cached as invalid.
	ErrProcessFailed

	// ErrVerifyFailed indicates transaction logic rejected the
	// transaction during verification. The id is cached as invalid.
	ErrVerifyFailed

	// ErrDuplicateTypeForSender indicates the sender already has a
	// ready transaction of a unique-per-sender type.
	ErrDuplicateTypeForSender

	// ErrInsufficientFunds indicates the projected balance cannot
	// cover amount plus fee.
	ErrInsufficientFunds

	// ErrNotInPool indicates the signing target is not in the pending
	// list.
	ErrNotInPool

	// ErrPermissionDenied indicates the signer is not a member of the
	// multisignature keysgroup.
	ErrPermissionDenied

	// ErrAlreadySigned indicates the produced signature is already
	// attached to the transaction.
	ErrAlreadySigned
)

var errorCodeStrings = map[ErrorCode]string{
	ErrAlreadyInvalid:         "ErrAlreadyInvalid",
	ErrDuplicateInPool:        "ErrDuplicateInPool",
	ErrPoolFull:               "ErrPoolFull",
	ErrSenderLookup:           "ErrSenderLookup",
	ErrRequesterNotFound:      "ErrRequesterNotFound",
	ErrProcessFailed:          "ErrProcessFailed",
	ErrVerifyFailed:           "ErrVerifyFailed",
	ErrDuplicateTypeForSender: "ErrDuplicateTypeForSender",
	ErrInsufficientFunds:      "ErrInsufficientFunds",
	ErrNotInPool:              "ErrNotInPool",
	ErrPermissionDenied:       "ErrPermissionDenied",
	ErrAlreadySigned:          "ErrAlreadySigned",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// TxRuleError identifies a rule violation.  It is used to indicate that
// processing of a transaction failed due to one of the many validation
// rules.  The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and access the Code field to
// ascertain the specific reason for the rule violation.
type TxRuleError struct {
	Code        ErrorCode // The code identifying the kind of violation
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e TxRuleError) Error() string {
	return e.Description
}

// RuleError identifies a rule violation.  The caller can use type
// assertions to determine if a failure was specifically due to a rule
// violation and use the Err field to access the underlying error.
type RuleError struct {
	Err error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.Err == nil {
		return "<nil>"
	}
	return e.Err.Error()
}

// txRuleError creates an underlying TxRuleError with the given a set of
// arguments and returns a RuleError that encapsulates it.
func txRuleError(c ErrorCode, desc string) RuleError {
	return RuleError{
		Err: TxRuleError{Code: c, Description: desc},
	}
}

// ExtractErrorCode attempts to return the rule error code of an error by
// examining it for known types.  It returns true when a code was
// successfully extracted.
func ExtractErrorCode(err error) (ErrorCode, bool) {
	if rerr, ok := err.(RuleError); ok {
		err = rerr.Err
	}
	if terr, ok := err.(TxRuleError); ok {
		return terr.Code, true
	}
	return 0, false
}

// IsErrorCode returns whether err is a rule error carrying the given
// code.
func IsErrorCode(err error, c ErrorCode) bool {
	code, ok := ExtractErrorCode(err)
	return ok && code == c
}
