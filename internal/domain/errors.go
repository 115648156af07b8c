package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNegativeBalance   = errors.New("update would drive balance negative")
	ErrArithmeticDomain  = errors.New("arithmetic domain fault")
	ErrSlotCountMismatch = errors.New("outcome slot count mismatch")
	ErrUnknownEventKind  = errors.New("unknown event kind")
	ErrWSDisconnect      = errors.New("websocket disconnected")
	ErrContextDone       = errors.New("context cancelled")
)
