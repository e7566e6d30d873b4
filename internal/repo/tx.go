package repo

import (
	"context"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

// Tx is the set of reads and writes available inside one unit of work.
// Implementations may buffer writes until commit, so callers must perform
// every read before the first write.
type Tx interface {
	GetProduct(ctx context.Context, id string) (models.Product, error)
	SetProductQuantity(ctx context.Context, id string, quantity int) error
	GetCart(ctx context.Context, shopperID string) (models.Cart, error)
	PutLine(ctx context.Context, shopperID string, line models.CartLine) error
	RemoveLine(ctx context.Context, shopperID, productID string) error
	CreateTransaction(ctx context.Context, t models.Transaction) error
	LogMovement(ctx context.Context, m models.Movement) error
	GetUser(ctx context.Context, id string) (models.User, error)
}

// TxStore runs fn atomically: either every write made through tx commits
// or none does. A returned ErrConflict means fn may be run again.
type TxStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ReadTxStore is implemented by stores that can run a unit of work that only
// reads, without locking the rows it reads. fn must not write through tx.
type ReadTxStore interface {
	WithinReadTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

var (
	_ TxStore     = (*InMemoryDB)(nil)
	_ ReadTxStore = (*InMemoryDB)(nil)
	_ ReadTxStore = (*PostgresTxStore)(nil)
	_ TxStore     = (*PostgresTxStore)(nil)
	_ TxStore     = (*FirestoreStore)(nil)

	_ ProductRepository = (*InMemoryProductRepository)(nil)
	_ ProductRepository = (*PostgresProductRepository)(nil)
	_ ProductRepository = (*FirestoreProductRepository)(nil)

	_ MovementRepository = (*InMemoryMovementRepository)(nil)
	_ MovementRepository = (*PostgresMovementRepository)(nil)
	_ MovementRepository = (*FirestoreMovementRepository)(nil)

	_ TransactionRepository = (*InMemoryTransactionRepository)(nil)
	_ TransactionRepository = (*PostgresTransactionRepository)(nil)
	_ TransactionRepository = (*FirestoreTransactionRepository)(nil)

	_ UserRepository = (*InMemoryUserRepository)(nil)
	_ UserRepository = (*PostgresUserRepository)(nil)
	_ UserRepository = (*FirestoreUserRepository)(nil)
)
