package rush

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swiftrush/rush-go/pkg/geo"
	"github.com/swiftrush/rush-go/pkg/models"
	"github.com/swiftrush/rush-go/pkg/resilience"
	"github.com/swiftrush/rush-go/pkg/transport"
)

const (
	// Maximum number of consecutive polling failures allowed before tracking
	// is abandoned.
	maxPollingFailures = 10

	defaultPollInterval       = 15 * time.Second
	defaultSimulationInterval = 30 * time.Second
)

// Delivery manages one delivery's full lifecycle: pre-confirmation editing,
// quoting, confirmation, status polling with exponential back-off, courier
// tracking and terminal completion or cancellation.
//
// Before Confirm assigns a delivery id the pickup, dropoff and items can be
// edited freely; afterwards all structural mutators fail with
// ErrDeliveryLocked and only status-tracking fields change.
type Delivery struct {
	mu sync.Mutex

	api     transport.Transport
	logger  *zap.Logger
	metrics *Metrics

	deliveryID       string
	quoteID          string
	orderReferenceID string
	fee              float64
	currencyCode     string
	status           Status

	pickup              *models.Waypoint
	dropoff             *models.Waypoint
	items               []models.Item
	specialInstructions string
	signatureRequired   bool

	courier        *Courier
	courierUnsub   func()
	extrapolate    bool

	pollingFailures int
	pollInterval    time.Duration
	pollStop        chan struct{}

	simulateDelay time.Duration
	simStop       chan struct{}

	statusEvent       emitter[Status]
	pickupETAEvent    emitter[int]
	dropoffETAEvent   emitter[int]
	locationEvent     emitter[geo.Position]
	trackingLostEvent emitter[struct{}]
}

// DeliveryOptions seeds a new delivery. Item is a convenience for a
// single-item delivery and is appended after Items.
type DeliveryOptions struct {
	Pickup           *models.Waypoint
	Dropoff          *models.Waypoint
	Items            []models.Item
	Item             *models.Item
	OrderReferenceID string
}

// QuoteOptions overrides the stored pickup/dropoff for a single quote request.
type QuoteOptions struct {
	Pickup  *models.Waypoint
	Dropoff *models.Waypoint
}

// ConfirmOptions overrides stored fields for confirmation; zero values fall
// back to what the delivery holds.
type ConfirmOptions struct {
	QuoteID          string
	OrderReferenceID string
	Pickup           *models.Waypoint
	Dropoff          *models.Waypoint
}

// deliveryPayload is the wire shape of a delivery returned by the backend.
type deliveryPayload struct {
	DeliveryID       string            `json:"delivery_id"`
	QuoteID          string            `json:"quote_id"`
	OrderReferenceID string            `json:"order_reference_id"`
	Fee              float64           `json:"fee"`
	CurrencyCode     string            `json:"currency_code"`
	Status           string            `json:"status"`
	Courier          *CourierPayload   `json:"courier"`
	Items            []models.Item     `json:"items"`
	Pickup           *models.Waypoint  `json:"pickup"`
	Dropoff          *models.Waypoint  `json:"dropoff"`
}

func newDelivery(api transport.Transport, logger *zap.Logger, metrics *Metrics, pollInterval, simulateDelay time.Duration, extrapolate bool, opts DeliveryOptions) (*Delivery, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	d := &Delivery{
		api:              api,
		logger:           logger,
		metrics:          metrics,
		orderReferenceID: opts.OrderReferenceID,
		pollInterval:     pollInterval,
		simulateDelay:    simulateDelay,
		extrapolate:      extrapolate,
		items:            []models.Item{},
	}

	if opts.Pickup != nil {
		if err := d.SetPickup(*opts.Pickup); err != nil {
			return nil, err
		}
	}
	if opts.Dropoff != nil {
		if err := d.SetDropoff(*opts.Dropoff); err != nil {
			return nil, err
		}
	}
	for _, item := range opts.Items {
		if err := d.AddItem(item); err != nil {
			return nil, err
		}
	}
	if opts.Item != nil {
		if err := d.AddItem(*opts.Item); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// AddItem appends an item to the delivery. Insertion order is preserved.
func (d *Delivery) AddItem(item models.Item) error {
	normalized, err := models.NewItem(item)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deliveryID != "" {
		return ErrDeliveryLocked
	}

	d.items = append(d.items, *normalized)
	d.logger.Debug("added item", zap.String("title", normalized.Title))
	return nil
}

// SetPickup sets the pickup waypoint.
func (d *Delivery) SetPickup(pickup models.Waypoint) error {
	wp, err := models.NewWaypoint(pickup)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deliveryID != "" {
		return ErrDeliveryLocked
	}

	d.pickup = wp
	return nil
}

// SetDropoff sets the dropoff waypoint.
func (d *Delivery) SetDropoff(dropoff models.Waypoint) error {
	wp, err := models.NewWaypoint(dropoff)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deliveryID != "" {
		return ErrDeliveryLocked
	}

	d.dropoff = wp
	return nil
}

// AddSpecialInstructions attaches courier instructions to the delivery.
func (d *Delivery) AddSpecialInstructions(instructions string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deliveryID != "" {
		return ErrDeliveryLocked
	}

	d.specialInstructions = instructions
	return nil
}

// RequireSignature toggles whether the dropoff requires a signature.
func (d *Delivery) RequireSignature(required bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deliveryID != "" {
		return ErrDeliveryLocked
	}

	d.signatureRequired = required
	return nil
}

// Quote requests quote candidates for the delivery. The first quote's id is
// stored as the working quote id; the full ordered list is returned so the
// caller can pick a different one and pass it to Confirm.
func (d *Delivery) Quote(ctx context.Context, opts *QuoteOptions) ([]*models.Quote, error) {
	if opts == nil {
		opts = &QuoteOptions{}
	}

	d.mu.Lock()
	if d.deliveryID != "" {
		d.mu.Unlock()
		return nil, ErrDeliveryLocked
	}

	pickup := opts.Pickup
	if pickup == nil {
		pickup = d.pickup
	}
	dropoff := opts.Dropoff
	if dropoff == nil {
		dropoff = d.dropoff
	}
	d.mu.Unlock()

	if !pickup.HasLocation() {
		return nil, ErrPickupMissing
	}
	if !dropoff.HasLocation() {
		return nil, ErrDropoffMissing
	}

	resp, err := d.api.Post(ctx, "deliveries/quote", map[string]interface{}{
		"pickup":  pickup,
		"dropoff": dropoff,
	})
	if err != nil {
		return nil, fmt.Errorf("quote failed: %w", err)
	}
	if resp.StatusCode != 201 {
		return nil, fmt.Errorf("quote failed: %w", &APIError{StatusCode: resp.StatusCode, Body: resp.Data})
	}

	var payload struct {
		Quotes []models.QuotePayload `json:"quotes"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, fmt.Errorf("quote failed: %w", err)
	}

	now := time.Now()
	quotes := make([]*models.Quote, 0, len(payload.Quotes))
	for i, q := range payload.Quotes {
		if i == 0 {
			d.mu.Lock()
			d.quoteID = q.QuoteID
			d.mu.Unlock()
		}
		quotes = append(quotes, models.NewQuote(q, now))
	}

	d.logger.Debug("received quotes", zap.Int("count", len(quotes)))
	return quotes, nil
}

// Confirm converts the working quote into a binding delivery order. On
// success the backend-assigned fields are applied, the dropoff_eta,
// pickup_eta and status events fire in that order, and the polling loop
// starts; with a simulate delay configured the simulation driver starts too.
func (d *Delivery) Confirm(ctx context.Context, opts *ConfirmOptions) error {
	if opts == nil {
		opts = &ConfirmOptions{}
	}

	d.mu.Lock()
	body := map[string]interface{}{
		"quote_id":           firstNonEmpty(opts.QuoteID, d.quoteID),
		"order_reference_id": firstNonEmpty(opts.OrderReferenceID, d.orderReferenceID),
		"items":              d.items,
	}
	if opts.Pickup != nil {
		body["pickup"] = opts.Pickup
	} else {
		body["pickup"] = d.pickup
	}
	if opts.Dropoff != nil {
		body["dropoff"] = opts.Dropoff
	} else {
		body["dropoff"] = d.dropoff
	}
	if d.specialInstructions != "" {
		body["special_instructions"] = d.specialInstructions
	}
	if d.signatureRequired {
		body["signature_required"] = true
	}
	d.mu.Unlock()

	d.logger.Debug("creating delivery")
	resp, err := d.api.Post(ctx, "deliveries", body)
	if err != nil {
		return fmt.Errorf("could not create delivery: %w", err)
	}
	if resp.StatusCode != 200 && resp.StatusCode != 201 {
		return fmt.Errorf("could not create delivery: %w", &APIError{StatusCode: resp.StatusCode, Body: resp.Data})
	}

	var payload deliveryPayload
	if err := resp.Decode(&payload); err != nil {
		return fmt.Errorf("could not create delivery: %w", err)
	}

	d.mu.Lock()
	d.applyPayloadLocked(payload, true)
	dropoffETA := etaOf(d.dropoff)
	pickupETA := etaOf(d.pickup)
	status := d.status
	simulate := d.simulateDelay
	d.mu.Unlock()

	// Emit the just-received snapshot: dropoff_eta, pickup_eta, then status.
	if dropoffETA != nil {
		d.dropoffETAEvent.emit(*dropoffETA)
	}
	if pickupETA != nil {
		d.pickupETAEvent.emit(*pickupETA)
	}
	d.statusEvent.emit(status)

	d.metrics.recordConfirmed()
	d.logger.Debug("delivery created", zap.String("delivery_id", payload.DeliveryID))

	d.updateStatus(ctx, "")

	if simulate > 0 {
		d.simulate(simulate)
	}

	return nil
}

// Refresh calls the API for the latest information on this delivery and
// applies it: courier created or patched in place, waypoint ETAs refreshed,
// a status event emitted, and on a terminal status the delivery completes.
// A failure increments the polling failure counter and is returned to the
// caller without stopping the poll loop.
func (d *Delivery) Refresh(ctx context.Context) error {
	d.mu.Lock()
	id := d.deliveryID
	d.mu.Unlock()
	if id == "" {
		return ErrNotConfirmed
	}

	d.metrics.recordPoll()
	d.logger.Debug("polling delivery status", zap.String("delivery_id", id))

	resp, err := d.api.Get(ctx, "deliveries/"+id)
	if err == nil && !resp.OK() {
		err = &APIError{StatusCode: resp.StatusCode, Body: resp.Data}
	}
	if err != nil {
		d.mu.Lock()
		d.pollingFailures++
		failures := d.pollingFailures
		d.mu.Unlock()

		d.metrics.recordPollFailure()
		d.logger.Warn("delivery status poll failed",
			zap.String("delivery_id", id),
			zap.Int("consecutive_failures", failures),
			zap.Error(err),
		)
		return err
	}

	var payload deliveryPayload
	if err := resp.Decode(&payload); err != nil {
		d.mu.Lock()
		d.pollingFailures++
		d.mu.Unlock()
		d.metrics.recordPollFailure()
		return err
	}

	d.mu.Lock()
	d.pollingFailures = 0

	if payload.Courier != nil {
		if d.courier == nil {
			d.courier = NewCourier(*payload.Courier, d.extrapolate, d.logger)
			d.courierUnsub = d.courier.OnMoved(func(pos geo.Position) {
				d.locationEvent.emit(pos)
			})
		} else {
			courier := d.courier
			d.mu.Unlock()
			courier.Update(*payload.Courier)
			d.mu.Lock()
		}
	}

	if d.pickup == nil && payload.Pickup != nil {
		d.pickup = payload.Pickup
	}
	if d.dropoff == nil && payload.Dropoff != nil {
		d.dropoff = payload.Dropoff
	}
	if payload.Pickup != nil && payload.Pickup.ETA != nil && d.pickup != nil {
		d.pickup.ETA = payload.Pickup.ETA
	}
	if payload.Dropoff != nil && payload.Dropoff.ETA != nil && d.dropoff != nil {
		d.dropoff.ETA = payload.Dropoff.ETA
	}

	status := ParseStatus(payload.Status)
	d.status = status
	d.mu.Unlock()

	// Emit the status event before terminal detection so subscribers see the
	// final status before listeners are detached.
	d.statusEvent.emit(status)

	if status.Terminal() {
		d.Complete()
	}

	return nil
}

// updateStatus installs the poll timer, doubling the interval for each
// consecutive failure. With a non-empty status it first instructs the sandbox
// to report that status on the next poll. Past the failure cap it abandons
// polling for good and emits tracking_lost.
func (d *Delivery) updateStatus(ctx context.Context, status Status) {
	d.mu.Lock()
	if d.pollingFailures > maxPollingFailures {
		d.stopPollingLocked()
		d.stopSimulationLocked()
		d.mu.Unlock()

		d.metrics.recordTrackingLost()
		d.logger.Warn("polling failure budget exhausted; tracking abandoned",
			zap.String("delivery_id", d.DeliveryID()),
		)
		d.trackingLostEvent.emit(struct{}{})
		return
	}
	id := d.deliveryID
	d.mu.Unlock()

	if status != "" {
		d.logger.Debug("overriding sandbox status",
			zap.String("delivery_id", id),
			zap.String("status", string(status)),
		)
		if _, err := d.api.Put(ctx, "sandbox/deliveries/"+id, map[string]string{
			"status": string(status),
		}); err != nil {
			d.logger.Warn("sandbox status override failed", zap.Error(err))
		}
	}

	d.mu.Lock()
	d.stopPollingLocked()
	stop := make(chan struct{})
	d.pollStop = stop
	d.mu.Unlock()

	go d.pollLoop(stop)
}

// pollLoop is the recurring status-refresh driver. One loop is alive at a
// time; the wait before each poll is recomputed from the failure counter so
// consecutive failures back off exponentially.
func (d *Delivery) pollLoop(stop chan struct{}) {
	for {
		d.mu.Lock()
		failures := d.pollingFailures
		interval := resilience.Backoff(d.pollInterval, failures, 0)
		d.mu.Unlock()

		if failures > maxPollingFailures {
			d.updateStatus(context.Background(), "")
			return
		}

		timer := time.NewTimer(interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		select {
		case <-stop:
			return
		default:
		}

		// Poll failures are absorbed into the back-off counter; they never
		// terminate tracking on their own.
		_ = d.Refresh(context.Background())
	}
}

// Polling reports whether the status poll loop is active.
func (d *Delivery) Polling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pollStop != nil
}

// Complete stops the poll and simulation timers, disposes the courier's
// timers and detaches all listeners. The delivery itself stays inspectable.
func (d *Delivery) Complete() {
	d.mu.Lock()
	d.stopPollingLocked()
	d.stopSimulationLocked()
	courier := d.courier
	unsub := d.courierUnsub
	d.courierUnsub = nil
	d.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if courier != nil {
		courier.Done()
	}

	d.statusEvent.removeAll()
	d.pickupETAEvent.removeAll()
	d.dropoffETAEvent.removeAll()
	d.locationEvent.removeAll()
	d.trackingLostEvent.removeAll()
}

// Cancel stops all timers and posts a cancellation for the delivery. A
// transport failure is propagated, not suppressed.
func (d *Delivery) Cancel(ctx context.Context) error {
	d.mu.Lock()
	id := d.deliveryID
	d.mu.Unlock()
	if id == "" {
		return ErrNotConfirmed
	}

	d.Complete()

	resp, err := d.api.Post(ctx, "deliveries/"+id+"/cancel", nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &APIError{StatusCode: resp.StatusCode, Body: resp.Data}
	}

	d.logger.Debug("canceled delivery", zap.String("delivery_id", id))
	return nil
}

// Rate submits a rating for a completed delivery.
func (d *Delivery) Rate(ctx context.Context, rating models.Rating) error {
	d.mu.Lock()
	id := d.deliveryID
	status := d.status
	d.mu.Unlock()

	if status != StatusCompleted {
		return fmt.Errorf("%w (status=%s)", ErrNotCompleted, status)
	}

	payload, err := rating.Normalize()
	if err != nil {
		return err
	}

	resp, err := d.api.Post(ctx, "deliveries/"+id+"/ratings", payload)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &APIError{StatusCode: resp.StatusCode, Body: resp.Data}
	}
	return nil
}

// Ratings fetches the ratings recorded for a completed delivery. Force skips
// the completed-status check.
func (d *Delivery) Ratings(ctx context.Context, force ...bool) (json.RawMessage, error) {
	d.mu.Lock()
	id := d.deliveryID
	status := d.status
	d.mu.Unlock()

	forced := len(force) > 0 && force[0]
	if status != StatusCompleted && !forced {
		return nil, fmt.Errorf("%w (status=%s)", ErrNotCompleted, status)
	}

	resp, err := d.api.Get(ctx, "deliveries/"+id+"/ratings")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: resp.Data}
	}
	return resp.Data, nil
}

// RatingTags fetches the rating tag vocabulary for the delivery's waypoints.
func (d *Delivery) RatingTags(ctx context.Context) (json.RawMessage, error) {
	d.mu.Lock()
	id := d.deliveryID
	d.mu.Unlock()
	if id == "" {
		return nil, ErrNotConfirmed
	}

	resp, err := d.api.Get(ctx, "deliveries/"+id+"/rating_tags")
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: resp.Data}
	}
	return resp.Data, nil
}

// OnStatus subscribes to status changes. The returned func unsubscribes.
func (d *Delivery) OnStatus(fn func(Status)) func() {
	return d.statusEvent.on(fn)
}

// OnPickupETA subscribes to pickup ETA updates in minutes.
func (d *Delivery) OnPickupETA(fn func(int)) func() {
	return d.pickupETAEvent.on(fn)
}

// OnDropoffETA subscribes to dropoff ETA updates in minutes.
func (d *Delivery) OnDropoffETA(fn func(int)) func() {
	return d.dropoffETAEvent.on(fn)
}

// OnLocation subscribes to courier position updates.
func (d *Delivery) OnLocation(fn func(geo.Position)) func() {
	return d.locationEvent.on(fn)
}

// OnTrackingLost fires once when the polling failure budget is exhausted and
// tracking is abandoned; the status field then freezes at its last known
// value.
func (d *Delivery) OnTrackingLost(fn func()) func() {
	return d.trackingLostEvent.on(func(struct{}) { fn() })
}

// DeliveryID returns the backend-assigned delivery id, empty before Confirm.
func (d *Delivery) DeliveryID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deliveryID
}

// QuoteID returns the working quote id selected by Quote.
func (d *Delivery) QuoteID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quoteID
}

// OrderReferenceID returns the caller's order reference.
func (d *Delivery) OrderReferenceID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orderReferenceID
}

// Status returns the last known delivery status.
func (d *Delivery) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Fee returns the delivery fee assigned at confirmation.
func (d *Delivery) Fee() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fee
}

// Courier returns the courier tracker, or nil before the first courier
// payload arrives. External code may read it and subscribe to its events but
// must not mutate it.
func (d *Delivery) Courier() *Courier {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.courier
}

// Pickup returns the pickup waypoint.
func (d *Delivery) Pickup() *models.Waypoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pickup
}

// Dropoff returns the dropoff waypoint.
func (d *Delivery) Dropoff() *models.Waypoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropoff
}

// Items returns the delivery's items in insertion order.
func (d *Delivery) Items() []models.Item {
	d.mu.Lock()
	defer d.mu.Unlock()
	items := make([]models.Item, len(d.items))
	copy(items, d.items)
	return items
}

// SpecialInstructions returns the courier instructions.
func (d *Delivery) SpecialInstructions() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.specialInstructions
}

// SignatureRequired reports whether the dropoff requires a signature.
func (d *Delivery) SignatureRequired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.signatureRequired
}

// applyPayloadLocked assigns a backend delivery snapshot onto the delivery,
// converting sub-objects into their value types. Caller holds d.mu.
func (d *Delivery) applyPayloadLocked(payload deliveryPayload, overwrite bool) {
	if payload.DeliveryID != "" {
		d.deliveryID = payload.DeliveryID
	}
	if payload.QuoteID != "" {
		d.quoteID = payload.QuoteID
	}
	if payload.OrderReferenceID != "" {
		d.orderReferenceID = payload.OrderReferenceID
	}
	if payload.Fee != 0 {
		d.fee = payload.Fee
	}
	if payload.CurrencyCode != "" {
		d.currencyCode = payload.CurrencyCode
	}
	if payload.Status != "" || overwrite {
		d.status = ParseStatus(payload.Status)
	}
	if payload.Items != nil {
		d.items = payload.Items
	}
	// Waypoints merge rather than replace: a confirmation response carries
	// ETA-only stubs and must not wipe the caller's addresses.
	if payload.Pickup != nil {
		if d.pickup == nil {
			d.pickup = payload.Pickup
		} else if payload.Pickup.ETA != nil {
			d.pickup.ETA = payload.Pickup.ETA
		}
	}
	if payload.Dropoff != nil {
		if d.dropoff == nil {
			d.dropoff = payload.Dropoff
		} else if payload.Dropoff.ETA != nil {
			d.dropoff.ETA = payload.Dropoff.ETA
		}
	}
	if payload.Courier != nil && d.courier == nil {
		d.courier = NewCourier(*payload.Courier, d.extrapolate, d.logger)
		d.courierUnsub = d.courier.OnMoved(func(pos geo.Position) {
			d.locationEvent.emit(pos)
		})
	}
}

func (d *Delivery) stopPollingLocked() {
	if d.pollStop != nil {
		close(d.pollStop)
		d.pollStop = nil
	}
}

func (d *Delivery) stopSimulationLocked() {
	if d.simStop != nil {
		close(d.simStop)
		d.simStop = nil
	}
}

func etaOf(wp *models.Waypoint) *int {
	if wp == nil {
		return nil
	}
	return wp.ETA
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
