package error

import "net/http"

// PolicyError marks a request that was well formed but rejected by a
// tenancy or lifecycle rule.
type PolicyError string

func (err PolicyError) Error() string {
	return string(err)
}

func (err PolicyError) ErrCode() string {
	return "POLICY_ERROR"
}

func (err PolicyError) StatusCode() int {
	return http.StatusConflict
}
