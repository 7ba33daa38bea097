package cli

import "errors"

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrArgRequired        = errors.New("missing argument")
	ErrTooManyArgs        = errors.New("too many arguments")
	ErrRegionAbsent       = errors.New("no region present")
	ErrVerifyMismatch     = errors.New("verify found mismatches")
)
