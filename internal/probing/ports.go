package probing

import (
	"strconv"
	"strings"

	"github.com/fwprobe/fwprobe/internal/errors"
)

const (
	portMin = 1
	portMax = 65535

	expectedRangeParts = 2
)

// ParsePortSet expands a port specification into a deduplicated port list.
// The specification is a comma-separated sequence of single ports and A-B
// inclusive ranges, e.g. "22,53,30000-30010". First-seen order is preserved
// so downstream ordering stays deterministic.
//
// Any out-of-range port, inverted range or unparseable token fails the whole
// specification with a PortSpecError and no partial output.
func ParsePortSet(spec string) ([]int, error) {
	var out []int
	seen := make(map[int]struct{})

	tokens := strings.Split(spec, ",")
	nonEmpty := 0
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		nonEmpty++

		ports, err := expandToken(token)
		if err != nil {
			return nil, err
		}
		for _, p := range ports {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	if nonEmpty == 0 {
		return nil, errors.NewPortSpecError(errors.CodePortUnparseable,
			"empty port specification", spec)
	}
	return out, nil
}

// expandToken expands a single token: either one port or an A-B range.
func expandToken(token string) ([]int, error) {
	if strings.Contains(token, "-") {
		return expandRange(token)
	}

	port, err := parsePort(token, token)
	if err != nil {
		return nil, err
	}
	return []int{port}, nil
}

// expandRange expands an inclusive A-B range token.
func expandRange(token string) ([]int, error) {
	parts := strings.SplitN(token, "-", expectedRangeParts)
	if len(parts) != expectedRangeParts {
		return nil, errors.ErrPortUnparseable(token)
	}

	start, err := parsePort(strings.TrimSpace(parts[0]), token)
	if err != nil {
		return nil, err
	}
	end, err := parsePort(strings.TrimSpace(parts[1]), token)
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, errors.ErrPortRangeInverted(token)
	}

	ports := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		ports = append(ports, p)
	}
	return ports, nil
}

// parsePort parses one integer port and checks the valid range. The token
// argument names the offending spec fragment in errors.
func parsePort(s, token string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.ErrPortUnparseable(token)
	}
	if port < portMin || port > portMax {
		return 0, errors.ErrPortOutOfRange(token)
	}
	return port, nil
}
