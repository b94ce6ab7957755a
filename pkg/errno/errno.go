package errno

import "net/http"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
	Status  int // HTTP status, 0 表示 200
}

func (e Errno) Error() string {
	return e.Message
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
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

// HTTPStatus 返回 err 对应的 HTTP 状态码
func HTTPStatus(err error) int {
	var e Errno
	switch typed := err.(type) {
	case nil:
		return http.StatusOK
	case *Errno:
		e = *typed
	case Errno:
		e = typed
	default:
		return http.StatusInternalServerError
	}
	if e.Status == 0 {
		return http.StatusOK
	}
	return e.Status
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error", Status: http.StatusInternalServerError}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct", Status: http.StatusBadRequest}
)

// Business Errors (20000+)
var (
	ErrInvalidHash           = Errno{Code: 20101, Message: "Invalid transaction hash", Status: http.StatusBadRequest}
	ErrTransactionNotFound   = Errno{Code: 20102, Message: "Transaction not found", Status: http.StatusNotFound}
	ErrTransferNotConfigured = Errno{Code: 20201, Message: "No wallet key configured for transfers", Status: http.StatusServiceUnavailable}
	ErrInvalidTransfer       = Errno{Code: 20202, Message: "Invalid transfer request", Status: http.StatusBadRequest}
	ErrWrongNetwork          = Errno{Code: 20203, Message: "Connected node is on a different network", Status: http.StatusConflict}
	ErrTransferFailed        = Errno{Code: 20204, Message: "Transfer submission failed", Status: http.StatusBadGateway}
)
