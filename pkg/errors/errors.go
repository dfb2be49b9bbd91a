package errors

import "errors"

// Общие ошибки инфраструктурных адаптеров, разделяемые сервисами платформы.
var (
	// ErrCacheMiss возвращается кэшем, если значение по ключу не найдено
	ErrCacheMiss = errors.New("cache: key not found")
)
