package trade

import "errors"

// Trade intents fail fast, before any account mutation. Each rejection maps
// to one of these sentinel errors so the presentation layer can show a
// specific message.
var (
	ErrInvalidQuantity      = errors.New("quantity must be a positive number")
	ErrInvalidSide          = errors.New("side must be buy or sell")
	ErrInvalidPrice         = errors.New("quote price must be positive")
	ErrInsufficientFunds    = errors.New("insufficient cash balance")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrUnknownAsset         = errors.New("unknown asset")
)
