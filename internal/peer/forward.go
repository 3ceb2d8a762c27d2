package peer

import (
	"context"

	"github.com/nugget/serial-keel/internal/endpoint"
	"github.com/nugget/serial-keel/internal/events"
	"github.com/nugget/serial-keel/internal/wire"
)

// startEndpointForwarding relays every FromWire event for an observed
// endpoint onto Outbound as an Async.Message push (ToWire events are
// skipped), until Unsubscribe closes the channel.
func (p *Peer) startEndpointForwarding(info endpoint.Info, events <-chan endpoint.Event) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for ev := range events {
			if ev.Kind != endpoint.EventFromWire {
				continue
			}
			select {
			case p.Outbound <- okFrame(wire.MessageResponse(info, ev.Payload)):
			default:
				p.log.Warn("dropped message push: outbound buffer full", "endpoint", info.ID.String())
			}
		}
	}()
}

// startEventForwarding relays the bus subscription onto Outbound as
// Async.Event pushes until ctx (owned by Close) is cancelled.
func (p *Peer) startEventForwarding(sub <-chan events.TimestampedEvent) {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.cancelEventFwd = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case te, ok := <-sub:
				if !ok {
					return
				}
				select {
				case p.Outbound <- okFrame(wire.EventResponse(te)):
				default:
					p.log.Warn("dropped event push: outbound buffer full")
				}
			}
		}
	}()
}
