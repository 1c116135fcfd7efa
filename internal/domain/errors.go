package domain

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")

	// ошибки share-ссылок
	ErrExpired          = errors.New("share link expired")
	ErrExhaustedUses    = errors.New("share link uses exhausted")
	ErrPasswordRequired = errors.New("password required")
	ErrInvalidPassword  = errors.New("invalid password")

	// криптографические ошибки: не ретраятся и никогда не
	// сворачиваются в общую ошибку
	ErrMetadataMissing      = errors.New("encryption metadata missing")
	ErrAuthenticationFailed = errors.New("ciphertext authentication failed")
	ErrIntegrityViolation   = errors.New("checksum integrity violation")

	// ретраябельная ошибка недоступности сервиса ключей
	ErrKeyServiceUnavailable = errors.New("key service unavailable")
)
