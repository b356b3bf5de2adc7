package protocol

import "errors"

var (
	ErrInvalidOpcode    = errors.New("protocol: invalid opcode")
	ErrInvalidOperation = errors.New("protocol: invalid operation")
	ErrInvalidArgument  = errors.New("protocol: invalid argument")
)
