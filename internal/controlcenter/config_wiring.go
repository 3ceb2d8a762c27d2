package controlcenter

import (
	"fmt"
	"path/filepath"

	"github.com/nugget/serial-keel/internal/config"
	"github.com/nugget/serial-keel/internal/endpoint"
	"github.com/nugget/serial-keel/internal/xtoken"
)

// SerialPortLister enumerates serial device paths present on the host.
// Injected so tests can simulate auto-opened ports without real hardware.
type SerialPortLister func() ([]string, error)

var serialPortGlobs = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/tty.usbserial*",
	"/dev/tty.usbmodem*",
}

// defaultSerialPortLister globs the usual Linux/macOS USB-serial device
// paths. It never errors: finding nothing is not a failure.
func defaultSerialPortLister() ([]string, error) {
	var found []string
	for _, pattern := range serialPortGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		found = append(found, matches...)
	}
	return found, nil
}

// wireConfig implements §4.5: installs every plain endpoint and group from
// cfg, then optionally auto-opens host serial ports not already known.
func (cc *controlCenter) wireConfig(cfg *config.Config, listPorts SerialPortLister) error {
	if err := cfg.Validate(); err != nil {
		return &BadConfigError{Msg: err.Error()}
	}

	known := make(map[endpoint.ID]struct{})

	for _, ec := range cfg.Endpoints {
		cc.installEndpoint(ec.ID, ec.Labels, nil)
		known[ec.ID] = struct{}{}
	}

	for _, g := range cfg.Groups {
		tok := xtoken.New()
		for _, ec := range g.Endpoints {
			labels := endpoint.Union(g.Labels, ec.Labels)
			cc.installEndpoint(ec.ID, labels, tok)
			known[ec.ID] = struct{}{}
		}
	}

	if !cfg.AutoOpenSerialPorts {
		return nil
	}
	if listPorts == nil {
		listPorts = defaultSerialPortLister
	}

	ports, err := listPorts()
	if err != nil {
		return &BadConfigError{Msg: fmt.Sprintf("listing serial ports: %s", err)}
	}

	for _, path := range ports {
		id := endpoint.Tty(path)
		if _, ok := known[id]; ok {
			continue
		}
		cc.installEndpoint(id, nil, nil)
		known[id] = struct{}{}
	}

	return nil
}

// installEndpoint constructs and inserts a new endpoint for id, sharing
// tok if non-nil (group membership) or minting its own token otherwise.
func (cc *controlCenter) installEndpoint(id endpoint.ID, labels endpoint.Labels, tok *xtoken.Token) {
	switch id.Kind {
	case endpoint.KindMock:
		opts := []endpoint.MockOption{endpoint.WithMockLabels(labels)}
		if tok != nil {
			opts = append(opts, endpoint.WithMockToken(tok))
		}
		cc.registry.Insert(endpoint.NewMock(id, cc.log, opts...))
	default:
		opts := []endpoint.SerialOption{endpoint.WithSerialLabels(labels)}
		if tok != nil {
			opts = append(opts, endpoint.WithSerialToken(tok))
		}
		cc.registry.Insert(endpoint.NewSerial(id, cc.log, opts...))
	}
}
