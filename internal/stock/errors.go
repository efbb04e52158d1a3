package stock

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientStock: the requested quantity exceeds what any
	// eligible warehouse can cover. Expected business outcome.
	ErrInsufficientStock = errors.New("недостаточно остатков")

	// ErrNoSuitableWarehouse: the selector found no candidate warehouse.
	ErrNoSuitableWarehouse = errors.New("нет подходящего склада")

	// ErrInvalidTransition: the delta would break the ledger invariant
	// (quantity == available + reserved, all >= 0). Caller error.
	ErrInvalidTransition = errors.New("недопустимое изменение остатков")

	// ErrUnknownReference: unknown item, warehouse or order id. Caller error.
	ErrUnknownReference = errors.New("неизвестный идентификатор")

	// ErrConcurrentModification: optimistic write conflicts exhausted the
	// retry budget.
	ErrConcurrentModification = errors.New("конфликт одновременного изменения")

	// ErrNotFound is returned by stores when a stock row does not exist.
	ErrNotFound = errors.New("запись не найдена")

	// ErrVersionConflict is returned by stores when a write lost the race
	// against another writer. The ledger retries on it.
	ErrVersionConflict = errors.New("конфликт версий")
)

func insufficientf(itemID string, need, avail int) error {
	return fmt.Errorf("%w: товар %s, запрошено %d, доступно %d", ErrInsufficientStock, itemID, need, avail)
}
