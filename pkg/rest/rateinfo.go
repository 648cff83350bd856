package rest

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitInfo carries the rate-limit usage a venue reports in its
// response headers, keyed by interval label ("1m", "10s", "1d").
type RateLimitInfo struct {
	// UsedWeight is consumed weight per interval, from headers like
	// X-MBX-USED-WEIGHT-1M.
	UsedWeight map[string]int
	// OrderCount is placed-order counts per interval, from headers
	// like X-MBX-ORDER-COUNT-10S.
	OrderCount map[string]int
	// RetryAfter is the venue's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

// IsZero reports whether no usage information was present.
func (i RateLimitInfo) IsZero() bool {
	return len(i.UsedWeight) == 0 && len(i.OrderCount) == 0 && i.RetryAfter == 0
}

const (
	usedWeightPrefix = "x-mbx-used-weight-"
	orderCountPrefix = "x-mbx-order-count-"
)

func parseRateLimitInfo(headers http.Header) RateLimitInfo {
	var info RateLimitInfo

	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		lower := strings.ToLower(key)
		switch {
		case strings.HasPrefix(lower, usedWeightPrefix):
			if n, err := strconv.Atoi(values[0]); err == nil {
				if info.UsedWeight == nil {
					info.UsedWeight = make(map[string]int)
				}
				info.UsedWeight[lower[len(usedWeightPrefix):]] = n
			}
		case strings.HasPrefix(lower, orderCountPrefix):
			if n, err := strconv.Atoi(values[0]); err == nil {
				if info.OrderCount == nil {
					info.OrderCount = make(map[string]int)
				}
				info.OrderCount[lower[len(orderCountPrefix):]] = n
			}
		}
	}

	if ra := headers.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			info.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	return info
}
