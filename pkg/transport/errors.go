package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego/telegoapi"
)

var (
	// ErrPermissionDenied covers missing admin rights, bot blocked, and
	// every other 403 shape the platform reports.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrChatUnavailable covers chats the bot cannot reach at all.
	ErrChatUnavailable = errors.New("chat unavailable")
)

// RateLimitError carries the platform-mandated pause before a retry may
// be attempted.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// classifyError folds platform API errors into the transport taxonomy.
// Errors that do not fit any bucket pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *telegoapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.ErrorCode {
	case 429:
		retryAfter := 1 * time.Second
		if apiErr.Parameters != nil && apiErr.Parameters.RetryAfter > 0 {
			retryAfter = time.Duration(apiErr.Parameters.RetryAfter) * time.Second
		}
		return &RateLimitError{RetryAfter: retryAfter}
	case 403:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, apiErr.Description)
	case 400:
		desc := strings.ToLower(apiErr.Description)
		if strings.Contains(desc, "chat not found") || strings.Contains(desc, "peer") {
			return fmt.Errorf("%w: %s", ErrChatUnavailable, apiErr.Description)
		}
	}
	return err
}
