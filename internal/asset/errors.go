package asset

import "errors"

// Common errors
var (
	ErrAmountOverflow   = errors.New("asset: amount overflow")
	ErrNegativeAmount   = errors.New("asset: negative amount")
	ErrDivisionByZero   = errors.New("asset: division by zero")
	ErrInvalidTokenPair = errors.New("asset: sell and buy token must differ")
	ErrInvalidAmount    = errors.New("asset: invalid amount")
	ErrInvalidPrice     = errors.New("asset: invalid price")
)
