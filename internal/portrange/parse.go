package portrange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Port bounds accepted by Parse.
const (
	// MinPort is the lowest port number that can be scanned.
	MinPort = 0

	// MaxPort is the highest port number that can be scanned.
	MaxPort = 65535
)

// AllPorts is the expression that selects every port from MinPort to MaxPort.
const AllPorts = "-"

var (
	// ErrInvalidFormat is returned when the expression is not a single port,
	// a "start-end" range, or the literal "-".
	ErrInvalidFormat = errors.New("invalid port range format")

	// ErrPortOutOfRange is returned when a port number exceeds MaxPort.
	ErrPortOutOfRange = errors.New("port out of range")

	// ErrInvalidRange is returned when a range starts after it ends.
	ErrInvalidRange = errors.New("invalid port range")
)

// rangePattern matches exactly one of "start-end", "port" or "-".
// Groups: 1=start, 2=end, 3=single port, 4=hyphen.
var rangePattern = regexp.MustCompile(`^(?:(\d{1,5})-(\d{1,5})|(\d{1,5})|(-))$`)

// Parse turns a port range expression into an ascending list of ports.
//
// Accepted forms:
//   - "443": a single port (1 to 5 digits, at most 65535)
//   - "20-25": an inclusive range with start <= end <= 65535
//   - "-": every port from 0 to 65535
//
// Format errors wrap ErrInvalidFormat; semantic errors wrap ErrPortOutOfRange
// or ErrInvalidRange.
func Parse(expr string) ([]int, error) {
	match := rangePattern.FindStringSubmatch(strings.TrimSpace(expr))
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, expr)
	}

	start, end, single, hyphen := match[1], match[2], match[3], match[4]

	switch {
	case hyphen != "":
		return Span(MinPort, MaxPort), nil

	case single != "":
		port, err := strconv.Atoi(single)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, expr)
		}
		if port > MaxPort {
			return nil, fmt.Errorf("%w: %d, max allowed is %d", ErrPortOutOfRange, port, MaxPort)
		}
		return []int{port}, nil

	case start != "" && end != "":
		from, err := strconv.Atoi(start)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, expr)
		}
		to, err := strconv.Atoi(end)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, expr)
		}
		if from > to {
			return nil, fmt.Errorf("%w: start port %d is greater than end port %d", ErrInvalidRange, from, to)
		}
		if to > MaxPort {
			return nil, fmt.Errorf("%w: %d, max allowed is %d", ErrPortOutOfRange, to, MaxPort)
		}
		return Span(from, to), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, expr)
}

// Span returns the ascending inclusive sequence [from, to].
// It returns nil when from > to.
func Span(from, to int) []int {
	if from > to {
		return nil
	}
	ports := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		ports = append(ports, p)
	}
	return ports
}
