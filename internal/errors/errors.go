package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
)

// Handle maps API error codes to friendly user-facing messages and
// returns a formatted error that Cobra will print before exiting with code 1.
func Handle(instanceURL string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case client.CodeUnauthorized:
			return fmt.Errorf("permission denied: check the instance admin token")
		case client.CodeNotFound:
			return fmt.Errorf("not found: the requested user or group does not exist")
		case client.CodeConflict:
			return fmt.Errorf("already exists: %s", apiErr.Message)
		case client.CodeValidation:
			return fmt.Errorf("the server rejected the request: %s", apiErr.Message)
		default:
			return fmt.Errorf("server error: %s", apiErr.Message)
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return fmt.Errorf("the operation timed out: check your Authelia server is reachable")
	case isConnectionError(err):
		if instanceURL != "" {
			return fmt.Errorf("could not connect to Authelia at %s: check the instance URL and your network", instanceURL)
		}
		return fmt.Errorf("could not connect to Authelia: check the instance URL and your network")
	default:
		return err
	}
}

func isTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Client.Timeout exceeded")
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	// url.Error wraps connection refused, no such host, etc.
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "EOF")
}
