package http_common

// ErrorResponse is the envelope every failed request returns.
type ErrorResponse struct {
	Error string `json:"error"`
}
