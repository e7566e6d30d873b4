package repo

import "errors"

var (
	// ErrProductNotFound is returned when a product is not found in the repository.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidQuantityChange is returned when a stock change would make a quantity negative.
	ErrInvalidQuantityChange = errors.New("invalid quantity change")
	// ErrDuplicatedValueUnique is returned when a unique field (product name, username) already exists.
	ErrDuplicatedValueUnique = errors.New("duplicated value for unique field")
	ErrUserNotFound          = errors.New("user not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	// ErrConflict reports that a unit of work lost a race with a concurrent
	// one and may be retried from the start.
	ErrConflict = errors.New("concurrent update conflict")
)
