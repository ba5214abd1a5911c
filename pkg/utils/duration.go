package utils

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDurationRE = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO 8601 duration such as "PT1H2M3S" to
// seconds. Only components present are counted; "PT" and "P0D" are zero.
// A day component is accepted because long livestream archives carry one.
func ParseISODuration(s string) (int, error) {
	m := isoDurationRE.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}

	weights := [...]int{86400, 3600, 60, 1}
	total := 0
	for i, w := range weights {
		part := m[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO 8601 duration %q: %w", s, err)
		}
		total += n * w
	}
	return total, nil
}
