// Package peer implements the per-connection actor that bridges a
// client's wire JSON actions to the control center: it translates
// incoming wire.ClientMessage frames into controlcenter.Action requests
// and controlcenter.Inform notices, owns the ControllerHandles it is
// granted (and releases their tokens on disconnect), and forwards
// endpoint wire events plus event-bus pushes to the client as
// wire.Frame values on its Outbound channel. Kept thin per spec §1/§6: it
// holds no endpoint-brokerage logic of its own, only routes messages.
package peer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nugget/serial-keel/internal/controlcenter"
	"github.com/nugget/serial-keel/internal/endpoint"
	"github.com/nugget/serial-keel/internal/wire"
)

// Peer is one connection's bridge into the control center. Created on
// connect, torn down on disconnect.
type Peer struct {
	user string
	cc   *controlcenter.Handle
	log  *slog.Logger

	// Outbound carries every frame this Peer wants delivered to its
	// client: sync replies, async message pushes, async event pushes.
	// The transport's write pump drains it; closed by Close.
	Outbound chan wire.Frame

	mu               sync.Mutex
	controlledTokens map[string]*controllerBundle // keyed by token uuid string
	controlledByID   map[endpoint.ID]*controllerBundle
	observed         map[endpoint.ID]observedEndpoint

	cancelEventFwd context.CancelFunc
	wg             sync.WaitGroup
}

type controllerBundle struct {
	avail *controlcenter.AvailableController
}

// observedEndpoint remembers the endpoint and the channel Subscribe
// handed back, so Close can Unsubscribe (which closes the channel and
// lets the forwarding goroutine in startEndpointForwarding return).
type observedEndpoint struct {
	endpoint endpoint.Endpoint
	events   <-chan endpoint.Event
}

// New creates a Peer for forUser and informs the control center the user
// has arrived (spec §4.4.1). The caller must eventually call Close.
func New(forUser string, cc *controlcenter.Handle, log *slog.Logger) *Peer {
	if log == nil {
		log = slog.Default()
	}
	p := &Peer{
		user:             forUser,
		cc:               cc,
		log:              log.With("user", forUser),
		Outbound:         make(chan wire.Frame, 256),
		controlledTokens: make(map[string]*controllerBundle),
		controlledByID:   make(map[endpoint.ID]*controllerBundle),
		observed:         make(map[endpoint.ID]observedEndpoint),
	}
	cc.Inform(forUser, controlcenter.UserArrivedInform{})
	return p
}

// Close releases every controller this Peer holds, unsubscribes every
// observed endpoint, stops event forwarding, informs the control center
// the user left (spec §4.4.2), and closes Outbound. Safe to call once.
func (p *Peer) Close() {
	p.mu.Lock()
	for _, cb := range p.controlledTokens {
		cb.avail.Token.Release()
	}
	p.controlledTokens = make(map[string]*controllerBundle)
	p.controlledByID = make(map[endpoint.ID]*controllerBundle)
	for id, oe := range p.observed {
		oe.endpoint.Unsubscribe(oe.events)
		delete(p.observed, id)
	}
	if p.cancelEventFwd != nil {
		p.cancelEventFwd()
	}
	p.mu.Unlock()

	p.cc.Inform(p.user, controlcenter.UserLeftInform{})
	p.wg.Wait()
	close(p.Outbound)
}

// Handle processes one decoded client frame and returns the wire.Frame to
// send back. Every action produces an immediate reply; a queued Control or
// ControlAny is answered with ControlQueue here, and its later grant is
// pushed as a second ControlGranted frame on Outbound.
func (p *Peer) Handle(ctx context.Context, msg wire.ClientMessage) *wire.Frame {
	switch msg.Kind() {
	case "Observe":
		return p.handleObserve(ctx, *msg.Observe)
	case "Control":
		return p.handleControl(ctx, *msg.Control)
	case "ControlAny":
		return p.handleControlAny(ctx, *msg.ControlAny)
	case "ObserveEvents":
		return p.handleObserveEvents(ctx)
	case "Write":
		return p.handleWrite(ctx, msg.Write.ID, []byte(msg.Write.Message))
	case "WriteBytes":
		return p.handleWrite(ctx, msg.WriteBytes.ID, msg.WriteBytes.Payload)
	default:
		f := errFrame(wire.Error{Kind: "BadJson", Msg: "empty or unrecognized action"})
		return &f
	}
}

func (p *Peer) handleObserveEvents(ctx context.Context) *wire.Frame {
	resp, err := p.cc.Do(ctx, p.user, controlcenter.SubscribeToEventsAction{})
	if err != nil {
		f := errFrame(wire.FromControlCenterError(err))
		return &f
	}
	sub := resp.(*controlcenter.EventSubscriptionResponse)
	p.startEventForwarding(sub.Events)
	f := okFrame(wire.ObservingEventsResponse())
	return &f
}

func (p *Peer) handleObserve(ctx context.Context, wireID wire.EndpointID) *wire.Frame {
	id, err := wireID.ToEndpointID(p.user)
	if err != nil {
		f := errFrame(wire.Error{Kind: "BadJson", Msg: err.Error()})
		return &f
	}

	resp, err := p.cc.Do(ctx, p.user, controlcenter.ObserveAction{ID: id})
	if err != nil {
		f := errFrame(wire.FromControlCenterError(err))
		return &f
	}
	obs := resp.(*controlcenter.EndpointObserverResponse)

	e, err := p.cc.LookupEndpoint(obs.Info.ID)
	if err != nil {
		f := errFrame(wire.FromControlCenterError(err))
		return &f
	}

	p.mu.Lock()
	p.observed[obs.Info.ID] = observedEndpoint{endpoint: e, events: obs.Events}
	p.mu.Unlock()
	p.startEndpointForwarding(obs.Info, obs.Events)

	f := okFrame(wire.ObservingResponse(obs.Info))
	return &f
}

func (p *Peer) handleControl(ctx context.Context, wireID wire.EndpointID) *wire.Frame {
	id, err := wireID.ToEndpointID(p.user)
	if err != nil {
		f := errFrame(wire.Error{Kind: "BadJson", Msg: err.Error()})
		return &f
	}

	resp, err := p.cc.Do(ctx, p.user, controlcenter.ControlAction{ID: id})
	if err != nil {
		f := errFrame(wire.FromControlCenterError(err))
		return &f
	}
	cr := resp.(*controlcenter.ControlResponse)

	if cr.Available != nil {
		p.adoptController(cr.Available, controlcenter.EndpointIDRequest{ID: id})
		f := okFrame(wire.ControlGrantedResponse(cr.Available.Bundle))
		return &f
	}

	go p.awaitQueuedGrant(cr.Busy, controlcenter.EndpointIDRequest{ID: id})
	f := okFrame(wire.ControlQueueResponse(cr.Busy.Bundle))
	return &f
}

func (p *Peer) handleControlAny(ctx context.Context, labels []string) *wire.Frame {
	resp, err := p.cc.Do(ctx, p.user, controlcenter.ControlAnyAction{Labels: labels})
	if err != nil {
		f := errFrame(wire.FromControlCenterError(err))
		return &f
	}
	cr := resp.(*controlcenter.ControlResponse)

	if cr.Available != nil {
		p.adoptController(cr.Available, controlcenter.LabelsRequest{Labels: labels})
		f := okFrame(wire.ControlGrantedResponse(cr.Available.Bundle))
		return &f
	}

	go p.awaitQueuedGrant(cr.Busy, controlcenter.LabelsRequest{Labels: labels})
	f := okFrame(wire.ControlQueueResponse(cr.Busy.Bundle))
	return &f
}

// awaitQueuedGrant blocks (in its own goroutine) until busy's promise
// resolves, then adopts the controller and pushes an async
// ControlGranted frame, matching spec S2: "C2 receives a second message,
// ControlGranted(...)".
func (p *Peer) awaitQueuedGrant(busy *controlcenter.BusyController, req controlcenter.UserRequest) {
	avail, ok := <-busy.Ready
	if !ok || avail == nil {
		return
	}
	p.adoptController(avail, req)

	select {
	case p.Outbound <- okFrame(wire.ControlGrantedResponse(avail.Bundle)):
	default:
		p.log.Warn("dropped ControlGranted push: outbound buffer full")
	}
}

// adoptController records a realized grant and informs the control
// center via NowControlling (spec §4.4.7/§9: the authoritative
// inControlOf transition happens here, at the moment the Peer actually
// holds the permit, not when control() replied).
func (p *Peer) adoptController(avail *controlcenter.AvailableController, req controlcenter.UserRequest) {
	cb := &controllerBundle{avail: avail}

	p.mu.Lock()
	p.controlledTokens[avail.Token.ID.String()] = cb
	for _, info := range avail.Bundle {
		p.controlledByID[info.ID] = cb
	}
	p.mu.Unlock()

	p.cc.Inform(p.user, controlcenter.NowControllingInform{Request: req, GotControl: avail.Bundle})
}

func (p *Peer) handleWrite(ctx context.Context, wireID wire.EndpointID, payload []byte) *wire.Frame {
	id, err := wireID.ToEndpointID(p.user)
	if err != nil {
		f := errFrame(wire.Error{Kind: "BadJson", Msg: err.Error()})
		return &f
	}

	p.mu.Lock()
	_, controls := p.controlledByID[id]
	p.mu.Unlock()
	if !controls {
		f := errFrame(wire.NoPermit(fmt.Sprintf("not in control of %s", id)))
		return &f
	}

	e, err := p.cc.LookupEndpoint(id)
	if err != nil {
		f := errFrame(wire.FromControlCenterError(err))
		return &f
	}

	if err := e.Send(ctx, payload); err != nil {
		f := errFrame(wire.TransportIssue(err.Error()))
		return &f
	}

	p.cc.Inform(p.user, controlcenter.MessageSentInform{ID: id, Payload: payload})
	f := okFrame(wire.WriteOk())
	return &f
}

func okFrame(r wire.Response) wire.Frame  { return wire.Frame{Ok: &r} }
func errFrame(e wire.Error) wire.Frame    { return wire.Frame{Err: &e} }
