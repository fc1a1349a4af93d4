package handler

// Envelope is the uniform success wrapper returned by the API. Success is
// derived from the status code; the embedded statusCode always equals the
// HTTP status line (201 responses carry statusCode 201, never 200).
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// NewEnvelope builds a response envelope. Pure data shaping, no side effects.
func NewEnvelope(statusCode int, data any, message string) Envelope {
	return Envelope{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    statusCode < 400,
	}
}

// ErrorEnvelope is the uniform failure wrapper. Data is always null,
// Success always false, and Errors is an ordered (possibly empty) list of
// problem details.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func newErrorEnvelope(statusCode int, message string, errs []string) ErrorEnvelope {
	if errs == nil {
		errs = []string{}
	}
	return ErrorEnvelope{
		StatusCode: statusCode,
		Data:       nil,
		Message:    message,
		Success:    false,
		Errors:     errs,
	}
}
