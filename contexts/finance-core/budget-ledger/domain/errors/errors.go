package errors

import "errors"

var (
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrInvalidInput            = errors.New("invalid budget operation input")
	ErrInvalidStatusTransition = errors.New("operation not allowed in current campaign status")
	ErrConcurrencyConflict     = errors.New("budget operation lost too many concurrent update races")
	ErrVersionConflict         = errors.New("campaign budget version is stale")
	ErrNotAuthorized           = errors.New("actor is not allowed to operate on this campaign")
	ErrSubmissionAlreadyPaid   = errors.New("submission payout already spent")
	ErrAlreadyReserved         = errors.New("submission earnings are already reserved")
	ErrNothingReserved         = errors.New("submission has no reserved earnings to release")
)
