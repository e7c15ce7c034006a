package error

// GenericError is implemented by every error in this package. The REST
// recovery middleware uses it to translate panics into proper responses.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
