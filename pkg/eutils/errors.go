package eutils

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches connection failures, non-OK responses and
	// undecodable response bodies.
	ErrTransport = errors.New("eutils transport failure")

	// ErrRemote matches an ERROR element reported inside a response.
	ErrRemote = errors.New("eutils remote error")
)

// ErrorClass classifies transport failures for metrics and logs.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents connection and timeout failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a response body that is not well-formed XML.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassRemote represents an ERROR element in the response.
	ErrorClassRemote ErrorClass = "remote"
)

// TransportError is a failed exchange with the service, raised before or
// independently of document parsing.
type TransportError struct {
	Endpoint   string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("eutils %s error on %s (status %d): %s: %v",
			e.ErrorClass, e.Endpoint, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("eutils %s error on %s (status %d): %s",
		e.ErrorClass, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// RemoteError carries the message of an ERROR element. Documents yielded
// before it arrived must be treated as invalid.
type RemoteError struct {
	Endpoint string
	Message  string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return "eutils error: " + e.Message
}

// Is matches ErrRemote.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}
