package errno

import (
	"errors"
	"fmt"
)

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Err carries an Errno together with the underlying cause.
// errors.Is(err, SomeErrno) matches on the code.
type Err struct {
	Errno
	Cause error
}

func (e *Err) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Err) Unwrap() error {
	return e.Cause
}

func (e *Err) Is(target error) bool {
	switch t := target.(type) {
	case Errno:
		return t.Code == e.Code
	case *Errno:
		return t != nil && t.Code == e.Code
	}
	return false
}

// Wrap attaches cause to no. A nil cause returns a bare *Err so callers can
// still match on the code.
func Wrap(no Errno, cause error) error {
	return &Err{Errno: no, Cause: cause}
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var wrapped *Err
	if errors.As(err, &wrapped) {
		return wrapped.Code, wrapped.Error()
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	default:
		return InternalServerError.Code, err.Error()
	}
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
)

// Key material (30100+)
var (
	ErrInvalidMnemonicFormat = Errno{Code: 30101, Message: "Invalid mnemonic format"}
	ErrKeyDerivation         = Errno{Code: 30102, Message: "Key derivation failed"}
	ErrMnemonicNotFound      = Errno{Code: 30103, Message: "No mnemonic stored for this session"}
)

// Cipher (30200+)
var (
	ErrEncryption       = Errno{Code: 30201, Message: "Encryption failed"}
	ErrDecryptionFailed = Errno{Code: 30202, Message: "Decryption failed"}
)

// Chain round trip (30300+)
var (
	ErrSubmissionFailed   = Errno{Code: 30301, Message: "Transaction submission failed"}
	ErrQueryFailed        = Errno{Code: 30302, Message: "Contract query failed"}
	ErrCorrelationTimeout = Errno{Code: 30303, Message: "Timed out waiting for the balance response"}
	ErrSubscriptionClosed = Errno{Code: 30304, Message: "Event subscription closed"}
	ErrParse              = Errno{Code: 30305, Message: "Response payload could not be parsed"}
)

// Session / input (30400+)
var (
	ErrBusy            = Errno{Code: 30401, Message: "A balance request is already in progress"}
	ErrAccountSwitched = Errno{Code: 30402, Message: "Account changed while waiting for the response"}
	ErrNotConnected    = Errno{Code: 30403, Message: "No wallet account connected"}
	ErrInvalidAddress  = Errno{Code: 30404, Message: "Invalid recipient address format."}
	ErrInvalidAmount   = Errno{Code: 30405, Message: "Amount should be greater than zero."}
)
