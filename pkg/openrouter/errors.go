package openrouter

import "fmt"

// RateLimitError is returned once the retry budget for upstream 429s is
// exhausted.
type RateLimitError struct{}

func (e *RateLimitError) Error() string {
	return "Rate limit exceeded. Please wait a moment and try again. Free models have strict usage limits."
}

// ModelNotFoundError is an upstream 404 for the requested model id.
type ModelNotFoundError struct {
	Model string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("Model '%s' not found or unavailable. Please select a different model.", e.Model)
}

// InvalidModelError is an upstream 400.
type InvalidModelError struct {
	Model string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("Invalid model ID '%s'. Please select a valid model from the list.", e.Model)
}

// TimeoutError is returned once the retry budget for upstream timeouts is
// exhausted.
type TimeoutError struct{}

func (e *TimeoutError) Error() string {
	return "Request timed out. Please try again."
}

// UpstreamError carries any other non-2xx upstream status verbatim.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("OpenRouter Error: %s", e.Body)
}
