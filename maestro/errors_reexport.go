package maestro

import mserrors "github.com/maestro/maestro/maestro/errors"

type (
	Error     = mserrors.Error
	ErrorCode = mserrors.ErrorCode
)

const (
	ErrSyntax      = mserrors.ErrSyntax
	ErrUnknownName = mserrors.ErrUnknownName
	ErrInvalid     = mserrors.ErrInvalid
	ErrNotFound    = mserrors.ErrNotFound
	ErrBackend     = mserrors.ErrBackend
	ErrCancelled   = mserrors.ErrCancelled
)

var (
	Wrap    = mserrors.Wrap
	NewErr  = mserrors.NewError
	IsCode  = mserrors.Is
	Invalid = mserrors.Invalid
)
