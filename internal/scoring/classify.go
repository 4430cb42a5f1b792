package scoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/user/recipe-service/internal/entity"
)

// ClassifyStatus maps an HTTP status code to a classified error. It returns
// nil for 2xx and 3xx codes.
func ClassifyStatus(url string, statusCode int) error {
	switch {
	case statusCode < 400:
		return nil
	case statusCode == http.StatusForbidden, statusCode == http.StatusUnauthorized,
		statusCode == http.StatusTooManyRequests:
		return entity.NewAccessBlockedError(
			fmt.Sprintf("the website refused access (HTTP %d)", statusCode), statusCode, nil)
	case statusCode == http.StatusNotFound, statusCode == http.StatusGone:
		return &entity.AppError{
			Kind:       entity.KindNotFound,
			Message:    "the recipe page could not be found; check the URL",
			StatusCode: statusCode,
		}
	case statusCode >= 500:
		return &entity.AppError{
			Kind:       entity.KindTransient,
			Message:    fmt.Sprintf("the website is temporarily unavailable (HTTP %d)", statusCode),
			StatusCode: statusCode,
		}
	default:
		return &entity.AppError{
			Kind:       entity.KindGeneric,
			Message:    fmt.Sprintf("fetching %s failed with HTTP %d", url, statusCode),
			StatusCode: statusCode,
		}
	}
}

// ClassifyTransportError maps a network-level failure to a classified error.
// Errors that are already classified are returned unchanged.
func ClassifyTransportError(url string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := entity.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return entity.NewTransientError("the website took too long to respond", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return entity.NewTransientError("the website took too long to respond", err)
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return entity.NewTransientError("the connection to the website failed", err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return entity.NewNotFoundError(fmt.Sprintf("the host of %s does not exist", url), err)
		}
		return entity.NewTransientError("the website address could not be resolved", err)
	}
	return entity.NewExtractionError(fmt.Sprintf("fetching %s failed", url), err)
}
