package dao

import "errors"

// Store errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidTicket  = errors.New("invalid ticket")
	ErrInvalidParam   = errors.New("invalid parameter")
)

const (
	sessionKeyPrefix = "faq-agent:session:"
	ticketKeyPrefix  = "faq-agent:ticket:"
)
