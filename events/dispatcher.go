// Package events implements the typed pub/sub dispatcher described in
// spec.md 4.4: two independent namespaces (SDK infrastructure events and
// Domain business events), ordered handler invocation, handler-failure
// isolation, and unsubscribe tokens that survive the "same handler
// registered twice" rule.
//
// The source's EventEmitter mutates its handler list during dispatch; we
// redesign that (per spec.md 9) by iterating a snapshot copy per emission
// and identifying registrations by an opaque token rather than handler
// identity.
package events

import "sync"

// SdkType enumerates infrastructure events.
type SdkType string

const (
	SdkOrderPlaced        SdkType = "order_placed"
	SdkFillReceived       SdkType = "fill_received"
	SdkPositionOpened     SdkType = "position_opened"
	SdkPositionClosed     SdkType = "position_closed"
	SdkGuardBlocked       SdkType = "guard_blocked"
	SdkStateChanged       SdkType = "state_changed"
	SdkErrorOccurred      SdkType = "error_occurred"
	SdkAll                SdkType = "*"
)

// DomainType enumerates business events.
type DomainType string

const (
	DomainOpportunityDetected DomainType = "opportunity_detected"
	DomainRiskBreached        DomainType = "risk_breached"
	DomainCircuitTripped      DomainType = "circuit_tripped"
	DomainFeedDegraded        DomainType = "feed_degraded"
	DomainAll                 DomainType = "*"
)

// Token unsubscribes a specific registration. It is opaque and unique per
// call to On*, even when the same handler function is registered twice —
// each registration gets its own token and its own slot in the handler
// list, satisfying "same handler registered twice is invoked twice".
type Token uint64

type sdkHandler struct {
	token   Token
	typ     SdkType
	handler func(typ SdkType, payload any)
}

type domainHandler struct {
	token   Token
	typ     DomainType
	handler func(typ DomainType, payload any)
}

// Dispatcher is the concrete EventDispatcher. Safe for concurrent use: the
// tick thread emits while SDK callbacks (fills arriving via the WS stream)
// may register/unregister from other goroutines.
type Dispatcher struct {
	mu sync.Mutex

	nextToken Token
	sdk       []sdkHandler
	domain    []domainHandler

	onHandlerError func(err any)
}

func New() *Dispatcher {
	return &Dispatcher{}
}

// OnHandlerError sets the callback invoked for each handler panic/error. If
// the callback itself panics, remaining handlers for the emission still
// run — the recover happens per-handler, not around the whole dispatch.
func (d *Dispatcher) OnHandlerError(fn func(err any)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onHandlerError = fn
}

// OnSdk registers handler for typ (or SdkAll for every SDK event). Returns
// an unsubscribe token.
func (d *Dispatcher) OnSdk(typ SdkType, handler func(typ SdkType, payload any)) Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextToken++
	tok := d.nextToken
	d.sdk = append(d.sdk, sdkHandler{token: tok, typ: typ, handler: handler})
	return tok
}

// OffSdk unsubscribes a token previously returned by OnSdk. Safe to call
// mid-dispatch — in-flight emissions already hold their own snapshot.
func (d *Dispatcher) OffSdk(tok Token) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, h := range d.sdk {
		if h.token == tok {
			d.sdk = append(d.sdk[:i:i], d.sdk[i+1:]...)
			return
		}
	}
}

// OnDomain registers handler for typ (or DomainAll).
func (d *Dispatcher) OnDomain(typ DomainType, handler func(typ DomainType, payload any)) Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextToken++
	tok := d.nextToken
	d.domain = append(d.domain, domainHandler{token: tok, typ: typ, handler: handler})
	return tok
}

func (d *Dispatcher) OffDomain(tok Token) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, h := range d.domain {
		if h.token == tok {
			d.domain = append(d.domain[:i:i], d.domain[i+1:]...)
			return
		}
	}
}

// EmitSdk invokes, in registration order, every handler registered for typ
// plus every handler registered for SdkAll. A handler panic is isolated: it
// is recovered, reported via onHandlerError, and does not stop subsequent
// handlers from running.
func (d *Dispatcher) EmitSdk(typ SdkType, payload any) {
	d.mu.Lock()
	snapshot := make([]sdkHandler, len(d.sdk))
	copy(snapshot, d.sdk)
	onErr := d.onHandlerError
	d.mu.Unlock()

	for _, h := range snapshot {
		if h.typ != typ && h.typ != SdkAll {
			continue
		}
		d.invokeSdk(h, typ, payload, onErr)
	}
}

func (d *Dispatcher) invokeSdk(h sdkHandler, typ SdkType, payload any, onErr func(err any)) {
	defer func() {
		if r := recover(); r != nil {
			safeReportError(onErr, r)
		}
	}()
	h.handler(typ, payload)
}

// EmitDomain mirrors EmitSdk for the domain namespace.
func (d *Dispatcher) EmitDomain(typ DomainType, payload any) {
	d.mu.Lock()
	snapshot := make([]domainHandler, len(d.domain))
	copy(snapshot, d.domain)
	onErr := d.onHandlerError
	d.mu.Unlock()

	for _, h := range snapshot {
		if h.typ != typ && h.typ != DomainAll {
			continue
		}
		d.invokeDomain(h, typ, payload, onErr)
	}
}

func (d *Dispatcher) invokeDomain(h domainHandler, typ DomainType, payload any, onErr func(err any)) {
	defer func() {
		if r := recover(); r != nil {
			safeReportError(onErr, r)
		}
	}()
	h.handler(typ, payload)
}

func safeReportError(onErr func(err any), r any) {
	if onErr == nil {
		return
	}
	defer func() { recover() }()
	onErr(r)
}

// Clear removes every handler from both namespaces.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sdk = nil
	d.domain = nil
}
