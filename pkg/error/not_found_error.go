package error

import "net/http"

type NotFoundError string

func (err NotFoundError) Error() string {
	return string(err)
}

func (err NotFoundError) ErrCode() string {
	return "NOT_FOUND_ERROR"
}

func (err NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// BotNotFound builds the standard not-found error for a bot id.
func BotNotFound(botID string) NotFoundError {
	return NotFoundError("botId: bot " + botID + " not found.")
}
