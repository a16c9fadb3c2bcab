// Package handler provides HTTP request handlers for the items API.
package handler

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}
