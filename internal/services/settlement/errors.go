package settlement

import "errors"

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrSelfTransfer  = errors.New("cannot transfer to self")
	ErrMissingLeg    = errors.New("withdrawal requires a phone or bank account destination")
)
