package service

import "errors"

var (
	ErrInvalidRequest            = errors.New("missing required parameters")
	ErrReferralAlreadyAttributed = errors.New("referred user is already attributed to another referrer")
	ErrUnknownReferrer           = errors.New("referrer does not exist")
	ErrLedgerWriteFailed         = errors.New("ledger write failed")
	ErrReferralNotFound          = errors.New("referral not found")
	ErrReferrerNotFound          = errors.New("referrer not found")
)
