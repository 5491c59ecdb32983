package ssdp

import "fmt"

// Error is a socket-level failure during an M-SEARCH exchange
type Error struct {
	Op   string // resolve, listen, configure, send, deadline, receive
	Addr string // search destination
	Err  error  // underlying socket error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("ssdp %s %s: %v", e.Op, e.Addr, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}
