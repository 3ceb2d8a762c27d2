package controlcenter

import (
	"context"
	"fmt"
	"strings"

	"github.com/nugget/serial-keel/internal/endpoint"
	"github.com/nugget/serial-keel/internal/events"
	"github.com/nugget/serial-keel/internal/user"
	"github.com/nugget/serial-keel/internal/xtoken"
)

// ensureUser fetches a user's state, creating it defensively if a request
// somehow arrived before its UserArrived inform was processed (the two
// travel the same ordered queue, so this should not happen in practice).
func (cc *controlCenter) ensureUser(forUser string) *user.State {
	u, ok := cc.users[forUser]
	if !ok {
		cc.log.Warn("request for user with no recorded arrival", "user", forUser)
		u = user.New()
		cc.users[forUser] = u
	}
	return u
}

// lookupOrCreate resolves id to its live endpoint, auto-creating mocks on
// first reference (spec §4.4.3/4.4.4).
func (cc *controlCenter) lookupOrCreate(id endpoint.ID) (endpoint.Endpoint, error) {
	if id.Kind == endpoint.KindMock {
		return cc.registry.GetOrCreateMock(id, func(id endpoint.ID) endpoint.Endpoint {
			return endpoint.NewMock(id, cc.log)
		}), nil
	}
	e, err := cc.registry.Get(id)
	if err != nil {
		return nil, &NoSuchEndpointError{ID: id}
	}
	return e, nil
}

func (cc *controlCenter) userArrived(forUser string) {
	if _, exists := cc.users[forUser]; exists {
		cc.log.Error("user arrived twice without leaving", "user", forUser)
		return
	}
	cc.users[forUser] = user.New()
	cc.pushEvent(events.Connected(forUser))
}

func (cc *controlCenter) userLeft(forUser string) {
	u, ok := cc.users[forUser]
	if !ok {
		return
	}
	delete(cc.users, forUser)
	u.CancelAllQueues()

	if obs := u.DrainObserving(); len(obs) > 0 {
		cc.pushEvent(events.NoLongerObserving(forUser, obs))
	}
	if q := u.DrainQueue(); len(q) > 0 {
		cc.pushEvent(events.NoLongerInQueueOf(forUser, q))
	}
	if tokenIDs := u.DrainControl(); len(tokenIDs) > 0 {
		var held []endpoint.Info
		for _, tid := range tokenIDs {
			held = append(held, cc.registry.EndpointsForToken(tid)...)
		}
		cc.pushEvent(events.NoLongerInControlOf(forUser, held))
	}
	cc.pushEvent(events.Disconnected(forUser))

	cc.removeDanglingMocks()
}

// removeDanglingMocks implements §4.4.8: an unlabelled mock survives only
// while some live user is actually holding or queued for its token. Serial
// endpoints are never removed.
func (cc *controlCenter) removeDanglingMocks() {
	active := make(map[endpoint.ID]struct{})

	for _, u := range cc.users {
		for tid := range u.InControlOf {
			for _, info := range cc.registry.EndpointsForToken(tid) {
				if len(info.Labels) == 0 {
					active[info.ID] = struct{}{}
				}
			}
		}
		for id, info := range u.InQueueOf {
			if len(info.Labels) == 0 {
				active[id] = struct{}{}
			}
		}
	}

	for _, info := range cc.registry.Unlabelled() {
		if info.ID.Kind != endpoint.KindMock {
			continue
		}
		if _, ok := active[info.ID]; ok {
			continue
		}
		cc.registry.Remove(info.ID)
	}
}

func (cc *controlCenter) observe(forUser string, id endpoint.ID) (Response, error) {
	e, err := cc.lookupOrCreate(id)
	if err != nil {
		return nil, err
	}

	u := cc.ensureUser(forUser)
	if _, ok := u.ObservingEndpoints[id]; ok {
		return nil, &SuperfluousRequestError{Msg: fmt.Sprintf("already observing %s", id)}
	}

	info := endpoint.Info{ID: e.ID(), Labels: e.Labels()}
	u.ObservingEndpoints[id] = info
	cc.pushEvent(events.Observing(forUser, []endpoint.Info{info}))

	return &EndpointObserverResponse{Info: info, Events: e.Subscribe()}, nil
}

func (cc *controlCenter) control(forUser string, id endpoint.ID) (Response, error) {
	e, err := cc.lookupOrCreate(id)
	if err != nil {
		return nil, err
	}

	u := cc.ensureUser(forUser)
	tok := e.Token()

	if _, ok := u.InControlOf[tok.ID]; ok {
		return nil, &SuperfluousRequestError{Msg: fmt.Sprintf("already controlling %s", id)}
	}
	if _, ok := u.InQueueOf[id]; ok {
		return nil, &SuperfluousRequestError{Msg: fmt.Sprintf("already queued for %s", id)}
	}

	bundle := cc.registry.EndpointsForToken(tok.ID)

	if tok.TryAcquire() {
		return &ControlResponse{Available: &AvailableController{Bundle: bundle, Token: tok}}, nil
	}

	for _, info := range bundle {
		u.InQueueOf[info.ID] = info
	}
	cc.pushEvent(events.InQueueFor(forUser, bundle))

	ctx, cancel := context.WithCancel(context.Background())
	u.AddQueueCancel(newRequestID(), cancel)

	out := make(chan *AvailableController, 1)
	go runControlWaiter(tok, ctx, out, bundle, nil)

	return &ControlResponse{Busy: &BusyController{Bundle: bundle, Ready: out}}, nil
}

// controlAnyCandidate is one label-matched token's classification result
// during ControlAny's first pass.
type controlAnyCandidate struct {
	token  *xtoken.Token
	bundle []endpoint.Info
}

// controlAny implements §4.4.5. Candidates are classified with a
// non-blocking TryAcquire before any queue state is touched; only once
// every surviving candidate has proven busy do we commit to InQueueOf and
// spawn waiters. This deliberately departs from a literal per-candidate
// replay of control(): the spec is explicit that an immediate winner must
// never leave the others queued, so the classify-then-commit split is
// needed to honor that even though every candidate ultimately funnels
// through the same acquire/queue machinery control() uses.
func (cc *controlCenter) controlAny(forUser string, labels endpoint.Labels) (Response, error) {
	if len(labels) == 0 {
		return nil, &BadUsageError{Msg: "an empty label query is not allowed"}
	}

	candidates := cc.registry.MatchLabels(labels)
	if len(candidates) == 0 {
		return nil, &NoMatchingEndpointsError{Labels: labels}
	}

	u := cc.ensureUser(forUser)

	var available, busy []controlAnyCandidate
	var errs []string

	for _, info := range candidates {
		e, err := cc.registry.Get(info.ID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", info.ID, err))
			continue
		}

		tok := e.Token()
		if _, ok := u.InControlOf[tok.ID]; ok {
			errs = append(errs, fmt.Sprintf("%s: already controlling", info.ID))
			continue
		}
		if _, ok := u.InQueueOf[info.ID]; ok {
			errs = append(errs, fmt.Sprintf("%s: already queued", info.ID))
			continue
		}

		c := controlAnyCandidate{token: tok, bundle: cc.registry.EndpointsForToken(tok.ID)}
		if tok.TryAcquire() {
			available = append(available, c)
		} else {
			busy = append(busy, c)
		}
	}

	if len(available) == 0 && len(busy) == 0 {
		return nil, &BadUsageError{Msg: fmt.Sprintf("every candidate for labels %v was rejected: %s", labels, strings.Join(errs, "; "))}
	}

	if len(available) > 0 {
		winner := available[0]
		for _, loser := range available[1:] {
			loser.token.Release()
		}
		return &ControlResponse{Available: &AvailableController{Bundle: winner.bundle, Token: winner.token}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	u.AddQueueCancel(newRequestID(), cancel)

	out := make(chan *AvailableController, 1)
	var unionBundle []endpoint.Info
	seen := make(map[endpoint.ID]struct{})

	for _, c := range busy {
		for _, info := range c.bundle {
			u.InQueueOf[info.ID] = info
			if _, ok := seen[info.ID]; !ok {
				seen[info.ID] = struct{}{}
				unionBundle = append(unionBundle, info)
			}
		}
		cc.pushEvent(events.InQueueFor(forUser, c.bundle))
		go runControlWaiter(c.token, ctx, out, c.bundle, cancel)
	}

	return &ControlResponse{Busy: &BusyController{Bundle: unionBundle, Ready: out}}, nil
}

func (cc *controlCenter) subscribeToEvents(forUser string) (Response, error) {
	u := cc.ensureUser(forUser)
	if u.ObservingEvents {
		return nil, &BadUsageError{Msg: "already subscribed to events"}
	}
	u.ObservingEvents = true
	return &EventSubscriptionResponse{Events: cc.eventsLog.Subscribe()}, nil
}

// nowControlling implements §4.4.7.
func (cc *controlCenter) nowControlling(forUser string, req UserRequest, gotControl []endpoint.Info) {
	if len(gotControl) == 0 {
		cc.log.Error("NowControlling inform with no endpoints", "user", forUser)
		return
	}

	u := cc.users[forUser]
	if u == nil {
		// The user left before its queue resolved; the waiter's permit was
		// already released back to the token by the Peer, nothing to do.
		return
	}

	e0, err := cc.registry.Get(gotControl[0].ID)
	if err != nil {
		cc.log.Error("NowControlling for unknown endpoint", "endpoint", gotControl[0].ID, "error", err)
		return
	}
	tokenID := e0.Token().ID
	for _, info := range gotControl[1:] {
		e, err := cc.registry.Get(info.ID)
		if err != nil || e.Token().ID != tokenID {
			cc.log.Error("NowControlling bundle spans more than one token", "user", forUser)
			break
		}
	}

	// Redesign per spec §9: the queue-diff events fire before InControlOf,
	// atomically with the inQueueOf/inControlOf state update, rather than
	// after (the original's documented ordering bug).
	if lr, ok := req.(LabelsRequest); ok {
		matched := cc.registry.MatchLabels(lr.Labels)
		got := make(map[endpoint.ID]struct{}, len(gotControl))
		for _, info := range gotControl {
			got[info.ID] = struct{}{}
		}

		var notWon []endpoint.Info
		for _, info := range matched {
			if _, ok := got[info.ID]; ok {
				continue
			}
			notWon = append(notWon, info)
			delete(u.InQueueOf, info.ID)
		}
		if len(notWon) > 0 {
			cc.pushEvent(events.NoLongerInQueueOf(forUser, notWon))
		}
	}

	// The won bundle itself must leave inQueueOf here too (whether the grant
	// came from a plain Control or a ControlAny): the user was only ever
	// queued on it, never granted it, until this moment. Without this,
	// invariant 2 (inQueueOf disjoint from inControlOf's expansion) would
	// break for every queue-then-grant transition.
	for _, info := range gotControl {
		delete(u.InQueueOf, info.ID)
	}

	u.InControlOf[tokenID] = struct{}{}
	cc.pushEvent(events.InControlOf(forUser, gotControl))
}

func (cc *controlCenter) messageReceived(forUser string, info endpoint.Info, payload []byte) {
	cc.pushEvent(events.MessageReceivedEvent(forUser, info, payload))
}

func (cc *controlCenter) messageSent(forUser string, id endpoint.ID, payload []byte) {
	info, err := cc.registry.InfoFor(id)
	if err != nil {
		cc.log.Warn("MessageSent for unknown endpoint", "endpoint", id, "error", err)
		return
	}
	cc.pushEvent(events.MessageSentEvent(forUser, info, payload))
}
