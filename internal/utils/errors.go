package utils

import "errors"

// ----------------- storage ------------------
var (
	ErrStorageEmptyHostName       = errors.New("host name is empty")
	ErrStorageInvalidPortNumber   = errors.New("port number is empty")
	ErrStorageEmptyUsername       = errors.New("username is empty")
	ErrStorageEmptyPassword       = errors.New("password is empty")
	ErrStorageInvalidDatabaseName = errors.New("database name is empty")
	ErrStorageInvalidSslMode      = errors.New("SSL mode is invalid")
	ErrStorageInvalidPoolSize     = errors.New("pool size is invalid")
	ErrStorageInvalidTimeout      = errors.New("timeout is invalid")
)

// ----------------- pricing service ------------------
var (
	ErrInvalidSupplierID = errors.New("invalid supplier id")
	ErrSupplierNotFound  = errors.New("supplier not found")
	ErrSupplierCodeTaken = errors.New("supplier code is already in use")
	ErrFeedNotFound      = errors.New("feed not found")
	ErrEmptyFeed         = errors.New("feed file is empty")
)
