package interfaces

import (
	"context"
)

// StoragePort определяет интерфейс для работы с постоянным хранилищем данных
// Реализация может использовать любую базу данных (PostgreSQL, MySQL, MongoDB и т.д.)
type StoragePort interface {
	// BeginTx начинает новую транзакцию и возвращает контекст с ней
	BeginTx(ctx context.Context) (context.Context, error)

	// CommitTx фиксирует транзакцию из контекста
	CommitTx(ctx context.Context) error

	// RollbackTx откатывает транзакцию из контекста
	RollbackTx(ctx context.Context) error

	// Close закрывает соединение с хранилищем
	Close() error
}
