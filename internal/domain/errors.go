package domain

import "errors"

// Trade rejections. The ledger never mutates state when returning one of these.
var (
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrUnknownSymbol        = errors.New("unknown symbol")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// Recoverable engine faults.
var (
	// ErrPersistenceRead means the durable slot was absent or malformed.
	// The engine recovers by starting a fresh simulation.
	ErrPersistenceRead = errors.New("persistence read failed")
	// ErrPersistenceUnavailable means the store could not be reached at all.
	// The slot may still hold good state, so the engine refuses to start
	// instead of overwriting it.
	ErrPersistenceUnavailable = errors.New("persistence store unavailable")
	// ErrPersistenceWrite is logged and never fatal; memory stays authoritative.
	ErrPersistenceWrite = errors.New("persistence write failed")
	// ErrSymbolCollision is returned only after the generator kept producing
	// symbols that are already active or archived.
	ErrSymbolCollision = errors.New("symbol collision")
	// ErrNonFinitePrice marks a ticker update that produced NaN or Inf.
	ErrNonFinitePrice = errors.New("non-finite price")
)
