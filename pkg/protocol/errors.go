package protocol

import (
	stderrors "errors"
	"fmt"
)

const (
	ErrInvoke   = "E_INVOKE"
	ErrRemote   = "E_REMOTE"
	ErrParse    = "E_PARSE"
	ErrHandler  = "E_HANDLER"
	ErrCanceled = "E_CANCELED"
)

// Error is a coded fault crossing the bridge.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: code, Message: msg}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var pe *Error
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
