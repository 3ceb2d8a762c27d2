package config

import (
	"fmt"

	"github.com/nugget/serial-keel/internal/endpoint"
)

// rawConfig mirrors the on-disk YAML shape described in spec.md §6:
//
//	endpoints:
//	  - id: {tty: /dev/ttyUSB0}
//	    labels: [fast]
//	groups:
//	  - labels: [bank-a]
//	    endpoints:
//	      - id: {mock: m1}
//	auto_open_serial_ports: true
type rawConfig struct {
	Endpoints           []rawEndpoint `yaml:"endpoints"`
	Groups              []rawGroup    `yaml:"groups"`
	AutoOpenSerialPorts *bool         `yaml:"auto_open_serial_ports"`
}

type rawGroup struct {
	Labels    []string      `yaml:"labels"`
	Endpoints []rawEndpoint `yaml:"endpoints"`
}

type rawEndpoint struct {
	ID     rawID    `yaml:"id"`
	Labels []string `yaml:"labels"`
}

// rawID is the tagged-union id as it appears in YAML: exactly one of Tty
// or Mock must be set.
type rawID struct {
	Tty  *string `yaml:"tty"`
	Mock *string `yaml:"mock"`
}

func (r rawID) toEndpointID() (endpoint.ID, error) {
	switch {
	case r.Tty != nil && r.Mock != nil:
		return endpoint.ID{}, fmt.Errorf("endpoint id must specify exactly one of tty or mock, not both")
	case r.Tty != nil:
		return endpoint.Tty(*r.Tty), nil
	case r.Mock != nil:
		return endpoint.Mock("", *r.Mock), nil
	default:
		return endpoint.ID{}, fmt.Errorf("endpoint id must specify tty or mock")
	}
}

func (r rawEndpoint) toEndpointConfig() (EndpointConfig, error) {
	id, err := r.ID.toEndpointID()
	if err != nil {
		return EndpointConfig{}, err
	}
	return EndpointConfig{ID: id, Labels: endpoint.Labels(r.Labels)}, nil
}

func (raw rawConfig) toConfig() (*Config, error) {
	cfg := &Config{AutoOpenSerialPorts: true}
	if raw.AutoOpenSerialPorts != nil {
		cfg.AutoOpenSerialPorts = *raw.AutoOpenSerialPorts
	}

	for _, re := range raw.Endpoints {
		ec, err := re.toEndpointConfig()
		if err != nil {
			return nil, fmt.Errorf("endpoints: %w", err)
		}
		cfg.Endpoints = append(cfg.Endpoints, ec)
	}

	for gi, rg := range raw.Groups {
		group := GroupConfig{Labels: endpoint.Labels(rg.Labels)}
		for _, re := range rg.Endpoints {
			ec, err := re.toEndpointConfig()
			if err != nil {
				return nil, fmt.Errorf("groups[%d]: %w", gi, err)
			}
			group.Endpoints = append(group.Endpoints, ec)
		}
		cfg.Groups = append(cfg.Groups, group)
	}

	return cfg, nil
}
