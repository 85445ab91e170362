package repositories

import "errors"

var (
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrProviderRequestNotFound = errors.New("provider request not found")
)
