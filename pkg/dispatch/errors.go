package dispatch

import "fmt"

// BackendError is a non-2xx response from the compute backend.
type BackendError struct {
	StatusCode int
	Body       []byte
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, truncate(string(e.Body), 512))
}

// NetworkError covers transport failures, timeouts and cancellation.
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return e.Message
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
