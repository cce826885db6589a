package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNotImplemented = errors.New("not implemented")
	ErrEmptyBuffer    = errors.New("message buffer is empty")
	ErrNotBranch      = errors.New("phrase has no children")
	ErrInvalidMode    = errors.New("invalid interaction mode")
	ErrNoSpeech       = errors.New("speech output unavailable")
)
