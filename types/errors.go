package types

import "errors"

var (
	ErrTypeAlreadyExists      = errors.New("type already exists")
	ErrTypeDoesNotExist       = errors.New("type does not exist")
	ErrComponentAlreadyExists = errors.New("component already exists")
	ErrComponentDoesNotExist  = errors.New("component does not exist")
	ErrPropertyAlreadyExists  = errors.New("property already exists")
	ErrPropertyDoesNotExist   = errors.New("property does not exist")
	ErrInvalidTypeID          = errors.New("invalid type id")
	ErrProviderAlreadyExists  = errors.New("provider already registered")
	ErrProviderDoesNotExist   = errors.New("provider not registered")
)
