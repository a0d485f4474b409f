// internal/domain/checkout/orchestrator.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
)

// State is the checkout lifecycle position
type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Step is where the shopper goes after the order is placed
type Step string

const (
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

const (
	defaultSubmitTimeout  = 15 * time.Second
	defaultPaymentTimeout = 20 * time.Second
)

// OrderSubmitter accepts an order draft
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, draft order.Draft) (*order.Receipt, error)
}

// PaymentCapturer charges a placed card order
type PaymentCapturer interface {
	Capture(ctx context.Context, req payment.CaptureRequest) (*payment.Result, error)
}

// Dependencies are shared by every orchestrator in the process
type Dependencies struct {
	Pricing        *pricing.Calculator
	Orders         OrderSubmitter
	Payments       PaymentCapturer
	Logger         *logrus.Logger
	SubmitTimeout  time.Duration
	PaymentTimeout time.Duration
	NewID          func() string
	Now            func() time.Time
}

// Outcome is the result of a successful submission
type Outcome struct {
	OrderID          string              `json:"order_id"`
	PaymentMethod    order.PaymentMethod `json:"payment_method"`
	Next             Step                `json:"next"`
	Total            money.Money         `json:"total"`
	Currency         string              `json:"currency"`
	PaymentReference string              `json:"payment_reference,omitempty"`
}

// Status is a point-in-time view of an orchestrator
type Status struct {
	State       State            `json:"state"`
	FieldErrors ValidationErrors `json:"field_errors,omitempty"`
	Error       string           `json:"error,omitempty"`
	Outcome     *Outcome         `json:"outcome,omitempty"`
}

// Orchestrator drives one checkout attempt for one cart: it validates the
// form, submits a draft asynchronously and routes to payment or confirmation.
type Orchestrator struct {
	mu          sync.Mutex
	cart        *cart.Store
	deps        Dependencies
	state       State
	form        Form
	fieldErrors ValidationErrors
	lastErr     error
	outcome     *Outcome
	inflight    *Submission
	capturing   bool

	// unsettled is the last draft whose submission timed out or was
	// cancelled; the order may still have been written.
	unsettled *order.Draft
}

// NewOrchestrator creates an orchestrator for the given cart
func NewOrchestrator(store *cart.Store, deps Dependencies) *Orchestrator {
	if deps.Pricing == nil {
		deps.Pricing = pricing.NewCalculator(pricing.DefaultPolicy())
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.SubmitTimeout <= 0 {
		deps.SubmitTimeout = defaultSubmitTimeout
	}
	if deps.PaymentTimeout <= 0 {
		deps.PaymentTimeout = defaultPaymentTimeout
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Orchestrator{
		cart:  store,
		deps:  deps,
		state: StateEditing,
	}
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastError returns the error that moved the checkout to failed
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// FieldErrors returns the errors of the last validation pass
func (o *Orchestrator) FieldErrors() ValidationErrors {
	o.mu.Lock()
	defer o.mu.Unlock()
	return copyErrors(o.fieldErrors)
}

// Outcome returns the placed order, if any
func (o *Orchestrator) Outcome() (Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcome == nil {
		return Outcome{}, false
	}
	return *o.outcome, true
}

// AwaitingPayment reports whether a card order has been placed and not
// yet paid
func (o *Orchestrator) AwaitingPayment() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateSucceeded && o.outcome != nil && o.outcome.Next == StepPayment
}

// Status returns a snapshot of the orchestrator
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{State: o.state, FieldErrors: copyErrors(o.fieldErrors)}
	if o.lastErr != nil {
		st.Error = o.lastErr.Error()
	}
	if o.outcome != nil {
		out := *o.outcome
		st.Outcome = &out
	}
	return st
}

// UpdateForm replaces the form contents. Field errors from an earlier
// validation pass are cleared.
func (o *Orchestrator) UpdateForm(form Form) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateSubmitting:
		return ErrSubmissionInFlight
	case StateSucceeded:
		return ErrAlreadySubmitted
	}

	o.form = form.Normalized()
	o.fieldErrors = nil
	o.state = StateEditing
	return nil
}

// Validate checks the current form without touching the cart
func (o *Orchestrator) Validate() ValidationErrors {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.fieldErrors = ValidateForm(o.form)
	return copyErrors(o.fieldErrors)
}

// Submit validates the form and starts the order submission. The returned
// Submission completes once the submitter answers, the timeout elapses or
// the submission is cancelled.
func (o *Orchestrator) Submit(ctx context.Context) (*Submission, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateSubmitting:
		return nil, ErrSubmissionInFlight
	case StateSucceeded:
		return nil, ErrAlreadySubmitted
	}

	o.state = StateValidating
	if errs := ValidateForm(o.form); errs != nil {
		o.fieldErrors = errs
		o.state = StateEditing
		return nil, copyErrors(errs)
	}
	o.fieldErrors = nil

	snapshot := o.cart.Snapshot()
	if snapshot.IsEmpty() {
		o.state = StateEditing
		return nil, ErrEmptyCart
	}

	draft := order.NewDraft(order.DraftInput{
		ID:            o.deps.NewID(),
		Items:         snapshot.Items,
		Shipping:      o.form.shippingAddress(),
		Billing:       o.form.billingAddress(),
		PaymentMethod: o.form.PaymentMethod,
		Contact:       order.Contact{Email: o.form.Email, Phone: o.form.Phone},
		Pricing:       o.deps.Pricing.ComputeBreakdown(snapshot.TotalAmount),
		CreatedAt:     o.deps.Now(),
	})
	if o.unsettled != nil && o.unsettled.SameOrder(draft) {
		draft = *o.unsettled
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.deps.SubmitTimeout)
	sub := &Submission{
		draft:  draft,
		done:   make(chan struct{}),
		cancel: cancel,
	}
	o.inflight = sub
	o.lastErr = nil
	o.state = StateSubmitting

	o.deps.Logger.WithFields(logrus.Fields{
		"draft_id":       draft.ID(),
		"items":          draft.ItemCount(),
		"total":          draft.TotalAmount().String(),
		"payment_method": draft.PaymentMethod(),
	}).Info("submitting order")

	go o.run(runCtx, sub)
	return sub, nil
}

// Cancel aborts the in-flight submission
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	sub := o.inflight
	o.mu.Unlock()

	if sub == nil {
		return ErrNoSubmissionInFlight
	}
	sub.Cancel()
	return nil
}

// CapturePayment charges a placed card order. When card is nil the card
// entered on the checkout form is used.
func (o *Orchestrator) CapturePayment(ctx context.Context, card *CardDetails) (*Outcome, error) {
	o.mu.Lock()
	if o.state != StateSucceeded || o.outcome == nil {
		o.mu.Unlock()
		return nil, ErrNotSubmitted
	}
	if o.outcome.Next != StepPayment {
		o.mu.Unlock()
		return nil, ErrPaymentNotRequired
	}
	if o.capturing {
		o.mu.Unlock()
		return nil, ErrPaymentInFlight
	}

	details := o.form.Card
	if card != nil {
		details = card.Normalized()
		if errs := ValidateCard(details); errs != nil {
			o.mu.Unlock()
			return nil, errs
		}
	}

	req := payment.CaptureRequest{
		OrderNumber: o.outcome.OrderID,
		Amount:      o.outcome.Total,
		Card: payment.Card{
			Number: details.CardNumber,
			Name:   details.CardName,
			Expiry: details.ExpiryDate,
		},
	}
	o.capturing = true
	o.mu.Unlock()

	payCtx, cancel := context.WithTimeout(ctx, o.deps.PaymentTimeout)
	defer cancel()
	res, err := o.deps.Payments.Capture(payCtx, req)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.capturing = false

	if err != nil {
		o.lastErr = err
		return nil, err
	}

	o.lastErr = nil
	o.form.Card = CardDetails{}
	o.outcome.Next = StepConfirmation
	o.outcome.PaymentReference = res.ProviderReference
	out := *o.outcome
	return &out, nil
}

func (o *Orchestrator) run(ctx context.Context, sub *Submission) {
	defer sub.cancel()

	type result struct {
		receipt *order.Receipt
		err     error
	}
	results := make(chan result, 1)
	go func() {
		receipt, err := o.deps.Orders.SubmitOrder(ctx, sub.draft)
		results <- result{receipt, err}
	}()

	var res result
	select {
	case res = <-results:
	case <-ctx.Done():
		select {
		case res = <-results:
		default:
			res = result{err: ctx.Err()}
		}
	}

	if res.err == nil && res.receipt == nil {
		res.err = errors.New("submitter returned no receipt")
	}
	if res.err != nil {
		res.err = sub.classify(ctx, res.err)
	}
	o.finish(sub, res.receipt, res.err)
}

func (o *Orchestrator) finish(sub *Submission, receipt *order.Receipt, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.inflight = nil
	entry := o.deps.Logger.WithField("draft_id", sub.draft.ID())

	if err != nil {
		if errors.Is(err, ErrSubmissionTimeout) || errors.Is(err, ErrSubmissionCancelled) {
			draft := sub.draft
			o.unsettled = &draft
		}
		o.state = StateFailed
		o.lastErr = err
		sub.err = err
		entry.WithError(err).Warn("checkout failed")
		close(sub.done)
		return
	}

	next := StepConfirmation
	if receipt.PaymentMethod == order.PaymentMethodCard {
		next = StepPayment
	}
	outcome := &Outcome{
		OrderID:       receipt.OrderNumber,
		PaymentMethod: receipt.PaymentMethod,
		Next:          next,
		Total:         receipt.Total,
		Currency:      receipt.Currency,
	}

	o.settleCart(sub.draft.Items())
	o.unsettled = nil
	o.outcome = outcome
	o.state = StateSucceeded
	out := *outcome
	sub.outcome = &out

	entry.WithFields(logrus.Fields{
		"order_number": receipt.OrderNumber,
		"next":         next,
	}).Info("checkout succeeded")
	close(sub.done)
}

// settleCart takes the ordered lines out of the cart. Anything added while
// the order was being placed stays behind.
func (o *Orchestrator) settleCart(ordered []cart.LineItem) {
	current := o.cart.Snapshot()
	for _, item := range ordered {
		if line, ok := current.Find(item.ID); ok {
			o.cart.UpdateQuantity(item.ID, line.Quantity-item.Quantity)
		}
	}
	if o.cart.Snapshot().IsEmpty() {
		o.cart.Clear()
	}
}

// Submission is a single in-flight order submission
type Submission struct {
	draft     order.Draft
	done      chan struct{}
	cancel    context.CancelFunc
	cancelled atomic.Bool

	outcome *Outcome
	err     error
}

// Draft returns the order draft being submitted
func (s *Submission) Draft() order.Draft {
	return s.draft
}

// Done is closed when the submission has finished
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission finishes or ctx is done. Giving up on
// the wait does not cancel the submission.
func (s *Submission) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-s.done:
		if s.err != nil {
			return nil, s.err
		}
		out := *s.outcome
		return &out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel aborts the submission if it has not finished yet
func (s *Submission) Cancel() {
	s.cancelled.Store(true)
	s.cancel()
}

func (s *Submission) classify(ctx context.Context, err error) error {
	switch {
	case s.cancelled.Load():
		return fmt.Errorf("%w: %w", ErrSubmissionCancelled, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrSubmissionTimeout, err)
	default:
		return err
	}
}

func copyErrors(errs ValidationErrors) ValidationErrors {
	if errs == nil {
		return nil
	}
	out := make(ValidationErrors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}
