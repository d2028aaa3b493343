package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mercator-hq/sketch/pkg/limits/ratelimit"
	"mercator-hq/sketch/pkg/providers"
	"mercator-hq/sketch/pkg/registry"
)

func displayName(desc registry.Descriptor) string {
	if desc.DisplayName != "" {
		return desc.DisplayName
	}
	return desc.ID
}

func rateLimitedMessage(desc registry.Descriptor, status ratelimit.Status) string {
	msg := fmt.Sprintf("%s quota of %d requests per %d minute(s) is used up",
		displayName(desc), desc.Quota.MaxRequests, desc.Quota.WindowMinutes)
	if !status.ResetAt.IsZero() {
		msg += "; it resets at " + status.ResetAt.Format(time.Kitchen)
	}
	return msg
}

// failureMessage turns a classified error into text fit for an end user.
func failureMessage(desc registry.Descriptor, kind providers.ErrorKind, err error) string {
	name := displayName(desc)

	switch kind {
	case providers.KindAuth:
		var validationErr *providers.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Sprintf("no API key is set for %s", name)
		}
		return fmt.Sprintf("%s rejected the API key; check that it is valid and has access to this model", name)

	case providers.KindProviderRateLimited:
		var rateErr *providers.RateLimitError
		if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
			return fmt.Sprintf("%s is rate limiting requests; retry in %s", name, rateErr.RetryAfter)
		}
		return fmt.Sprintf("%s is rate limiting requests; try again later", name)

	case providers.KindNetwork:
		var timeoutErr *providers.TimeoutError
		if errors.As(err, &timeoutErr) {
			return fmt.Sprintf("%s did not answer in time", name)
		}
		return fmt.Sprintf("could not reach %s: %v", name, err)

	case providers.KindEmptyResponse:
		return fmt.Sprintf("%s returned an empty response", name)
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return fmt.Sprintf("%s request failed with status %d: %s",
			name, provErr.StatusCode, truncate(strings.TrimSpace(provErr.Message), maxMessageBody))
	}
	return fmt.Sprintf("%s request failed: %v", name, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
