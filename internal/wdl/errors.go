package wdl

import "fmt"

// APIError is a terminal response from the WDL API. The advice text mirrors
// the guidance the vendor ships with their reference client.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
	Advice     string
}

func (e *APIError) Error() string {
	if e.Advice != "" {
		return fmt.Sprintf("wdl api: HTTP %d for %s: %s", e.StatusCode, e.URL, e.Advice)
	}
	return fmt.Sprintf("wdl api: HTTP %d for %s", e.StatusCode, e.URL)
}

func adviceFor(statusCode int) string {
	switch statusCode {
	case 400:
		return "bad request, contact support@welldatalabs.com"
	case 401:
		return "authentication token is invalid, verify the Authorization header and API key"
	case 403:
		return "valid token without permission to this resource, contact support@welldatalabs.com"
	case 404:
		return "no data found matching the criteria"
	case 429:
		return "rate limit exceeded"
	default:
		return ""
	}
}

func newAPIError(statusCode int, url string, body []byte) *APIError {
	snippet := body
	if len(snippet) > 2000 {
		snippet = snippet[:2000]
	}
	return &APIError{
		StatusCode: statusCode,
		URL:        url,
		Body:       string(snippet),
		Advice:     adviceFor(statusCode),
	}
}
