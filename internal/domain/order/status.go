package order

import (
	"fmt"
	"slices"

	"github.com/go-faster/errors"
)

// Status is the order lifecycle state. The set of values is closed; the
// zero value is not a valid status.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusConfirmed
	StatusPreparing
	StatusDelivered
	StatusCancelled
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusDelivered,
	StatusCancelled,
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusPreparing:
		return "PREPARING"
	case StatusDelivered:
		return "DELIVERED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusCancelled
}

// Next returns the statuses reachable from s in one step. Terminal and
// invalid statuses have none.
func (s Status) Next() []Status {
	switch s {
	case StatusPending:
		return []Status{StatusConfirmed, StatusCancelled}
	case StatusConfirmed:
		return []Status{StatusPreparing, StatusCancelled}
	case StatusPreparing:
		return []Status{StatusDelivered, StatusCancelled}
	case StatusDelivered, StatusCancelled:
		return nil
	default:
		return nil
	}
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether s -> to is a legal edge. Self-transitions
// are never legal.
func (s Status) CanTransitionTo(to Status) bool {
	return slices.Contains(s.Next(), to)
}

// ParseStatus parses the upper-case wire name of a status.
func ParseStatus(v string) (Status, error) {
	for _, s := range Statuses {
		if s.String() == v {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown order status %q", v)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.Errorf("invalid order status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// InvalidTransitionError reports an attempt to move an order along an edge
// the lifecycle does not allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}
