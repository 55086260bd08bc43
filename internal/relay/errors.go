package relay

import "fmt"

// ErrorHTTPRequest is returned when the trigger endpoint responds with a
// non-2xx status code.
type ErrorHTTPRequest struct {
	Body   []byte
	Status int
}

func (e *ErrorHTTPRequest) Error() string {
	return fmt.Sprintf("http request failed with StatusCode: %d, response: %q", e.Status, string(e.Body))
}
