package domain

import "errors"

var (
	ErrInvalidIdentity   = errors.New("identity variant does not match its payload")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrTerminalStatus    = errors.New("ticket is in a terminal status")
	ErrAssigneeRequired  = errors.New("ticket must have an assigned agent")
	ErrUnknownStatus     = errors.New("unknown ticket status")
)
