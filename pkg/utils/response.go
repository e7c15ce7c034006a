package utils

import (
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
)

type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics with err so the REST recovery middleware can turn
// it into a response. A gorm "record not found" is upgraded to a proper
// NotFoundError when a message is supplied.
func PanicIfNeeded(err any, message ...string) {
	if err == nil {
		return
	}

	if errStr, ok := err.(error); ok && errStr.Error() == "record not found" && len(message) > 0 {
		panic(pkgError.NotFoundError(message[0]))
	}

	panic(err)
}
