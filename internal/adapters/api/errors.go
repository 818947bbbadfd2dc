package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

func asClassified(err error, target **shared.ClassifiedError) bool {
	return errors.As(err, target)
}

// classifyStatus maps an HTTP status to a classified error. The response
// body travels on the error payload for diagnostics.
func classifyStatus(op string, status int, body string, retryAfter int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return shared.NewAuthError(op, fmt.Sprintf("commerce API rejected credentials (%d)", status))
	case status == http.StatusTooManyRequests:
		e := shared.NewTransientError(op, "throttled (429)", nil)
		if retryAfter > 0 {
			e.RetryAfter = secondsToDuration(retryAfter)
		}
		return e
	case status >= 500:
		e := shared.NewTransientError(op, fmt.Sprintf("server error (%d)", status), nil)
		e.Payload = body
		return e
	case status >= 400:
		e := shared.NewValidationError(op, fmt.Sprintf("request rejected (%d)", status))
		e.Payload = body
		return e
	}
	return nil
}

// userErrorsToError converts a GraphQL userErrors array into a classified
// failure. Throttling messages embedded in userErrors stay retryable.
func userErrorsToError(op string, userErrors []userError) error {
	if len(userErrors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(userErrors))
	throttled := false
	for _, ue := range userErrors {
		msgs = append(msgs, ue.String())
		if strings.Contains(strings.ToLower(ue.Message), "throttl") {
			throttled = true
		}
	}
	joined := strings.Join(msgs, "; ")
	if throttled {
		return shared.NewTransientError(op, joined, nil)
	}
	e := shared.NewValidationError(op, joined)
	return e
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

func (ue userError) String() string {
	if len(ue.Field) > 0 {
		return fmt.Sprintf("%s: %s", strings.Join(ue.Field, "."), ue.Message)
	}
	return ue.Message
}

func secondsToDuration(seconds int) (d time.Duration) {
	return time.Duration(seconds) * time.Second
}
