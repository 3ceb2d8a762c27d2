// Package wire defines the JSON action/response schema spoken over the
// transport (spec §6): client requests, server responses, the endpoint id
// tagged union, and the error taxonomy. Everything here is pure data plus
// conversions to/from the internal endpoint/controlcenter types — no
// behavior.
package wire

import (
	"fmt"

	"github.com/nugget/serial-keel/internal/endpoint"
)

// EndpointID is the wire form of endpoint.ID: exactly one of Tty or Mock
// is set, mirroring spec §6's `{Tty: string}` / `{Mock: string}` union.
type EndpointID struct {
	Tty  *string `json:"Tty,omitempty"`
	Mock *string `json:"Mock,omitempty"`
}

// ToEndpointID converts a wire id to its internal form. owner is the
// connection's user name, used as the mock's owning-user field (mocks are
// scoped per-user by default; see registry.Registry.normalize).
func (id EndpointID) ToEndpointID(owner string) (endpoint.ID, error) {
	switch {
	case id.Tty != nil && id.Mock != nil:
		return endpoint.ID{}, fmt.Errorf("endpoint id must specify exactly one of Tty or Mock, not both")
	case id.Tty != nil:
		return endpoint.Tty(*id.Tty), nil
	case id.Mock != nil:
		return endpoint.Mock(owner, *id.Mock), nil
	default:
		return endpoint.ID{}, fmt.Errorf("endpoint id must specify Tty or Mock")
	}
}

// FromEndpointID converts an internal id to its wire form.
func FromEndpointID(id endpoint.ID) EndpointID {
	switch id.Kind {
	case endpoint.KindTty:
		tty := id.Tty
		return EndpointID{Tty: &tty}
	case endpoint.KindMock:
		name := id.MockName
		return EndpointID{Mock: &name}
	default:
		return EndpointID{}
	}
}

// LabelledEndpointID pairs a wire id with its labels, the shape every
// Sync response that names endpoints returns (spec §6).
type LabelledEndpointID struct {
	ID     EndpointID `json:"id"`
	Labels []string   `json:"labels"`
}

// FromInfo converts an endpoint.Info to its wire form.
func FromInfo(info endpoint.Info) LabelledEndpointID {
	labels := info.Labels
	if labels == nil {
		labels = endpoint.Labels{}
	}
	return LabelledEndpointID{ID: FromEndpointID(info.ID), Labels: []string(labels)}
}

// FromInfos converts a slice of endpoint.Info to their wire form.
func FromInfos(infos []endpoint.Info) []LabelledEndpointID {
	out := make([]LabelledEndpointID, len(infos))
	for i, info := range infos {
		out[i] = FromInfo(info)
	}
	return out
}
