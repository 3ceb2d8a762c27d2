// Package endpoint defines the behavioral record shared by every
// duplex byte channel the control center can hand out observers and
// controllers for: physical serial ports and in-memory mocks.
package endpoint

import "fmt"

// Kind discriminates the two EndpointId variants.
type Kind string

const (
	KindTty  Kind = "tty"
	KindMock Kind = "mock"
)

// ID identifies an endpoint. Serial ids are globally unique by path.
// Mock ids carry an owning user name in addition to their given name;
// whether that owner participates in equality is a Registry-level policy
// (see Registry.normalize), not a property of ID itself.
type ID struct {
	Kind      Kind
	Tty       string
	MockOwner string
	MockName  string
}

// Tty builds a serial-port endpoint id.
func Tty(path string) ID { return ID{Kind: KindTty, Tty: path} }

// Mock builds a mock endpoint id owned by the given user.
func Mock(owner, name string) ID { return ID{Kind: KindMock, MockOwner: owner, MockName: name} }

func (id ID) String() string {
	switch id.Kind {
	case KindTty:
		return fmt.Sprintf("tty:%s", id.Tty)
	case KindMock:
		return fmt.Sprintf("mock:%s:%s", id.MockOwner, id.MockName)
	default:
		return "unknown-endpoint"
	}
}

// Info pairs an ID with the labels currently attached to it. Equality and
// hashing for anything keyed by Info must use ID alone — Labels only ride
// along for display, per spec.
type Info struct {
	ID     ID
	Labels Labels
}

func (i Info) String() string {
	if len(i.Labels) == 0 {
		return i.ID.String()
	}
	return fmt.Sprintf("%s %v", i.ID, i.Labels)
}
