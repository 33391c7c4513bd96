package router

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smmvend/vendbot/internal/catalog"
	"github.com/smmvend/vendbot/internal/present"
	"github.com/smmvend/vendbot/internal/smm"
)

const (
	// TriggerCommand is the literal chat command that starts the flow
	TriggerCommand = "!vending"

	// FieldURL is the form field ID of the required target URL input
	FieldURL = "url"
)

// OrderPlacer places one order and reports the normalized outcome.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req smm.OrderRequest) smm.OrderResult
}

// Router dispatches inbound chat events to handlers and drives the
// command -> selection -> form -> order flow. Correlation between a
// rendered control or form and the event it later produces goes through
// explicit token maps; tokens are minted when the control is rendered and
// consumed on first match. Events carrying a token the router did not
// mint, or one already consumed, are ignored without a reply.
type Router struct {
	catalog *catalog.Catalog
	orders  OrderPlacer
	log     *zap.Logger

	mu       sync.Mutex
	controls map[string]string // control token -> service ID
	forms    map[string]string // form token -> service ID

	tasks sync.WaitGroup
}

// New creates a router over the given catalog and order placer.
func New(cat *catalog.Catalog, orders OrderPlacer, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		catalog:  cat,
		orders:   orders,
		log:      log,
		controls: make(map[string]string),
		forms:    make(map[string]string),
	}
}

// Dispatch routes one event to its handler. Unrecognized event kinds are
// dropped.
func (r *Router) Dispatch(ctx context.Context, ev Event, ix Interaction) error {
	switch ev := ev.(type) {
	case Command:
		return r.HandleCommand(ctx, ev, ix)
	case ControlActivated:
		return r.HandleControl(ctx, ev, ix)
	case FormSubmitted:
		return r.HandleForm(ctx, ev, ix)
	default:
		r.log.Debug("dropping unrecognized event kind")
		return nil
	}
}

// HandleCommand answers the trigger command with the catalog listing and
// one selection button per entry. Other message text is not for us.
func (r *Router) HandleCommand(ctx context.Context, ev Command, ix Interaction) error {
	if ev.Text != TriggerCommand {
		return nil
	}

	entries := r.catalog.List()
	controls := make([]Control, 0, len(entries))

	r.mu.Lock()
	for _, e := range entries {
		token := uuid.NewString()
		r.controls[token] = e.ServiceID
		controls = append(controls, Control{ID: token, Label: e.Label})
	}
	r.mu.Unlock()

	r.log.Info("catalog listed",
		zap.String("user", ev.UserID),
		zap.Int("entries", len(entries)))

	return ix.SendMessage(ctx, present.Catalog(entries), controls)
}

// HandleControl opens the URL form for the selected product. Activations
// with an unknown or already-consumed token are stale or foreign and are
// ignored.
func (r *Router) HandleControl(ctx context.Context, ev ControlActivated, ix Interaction) error {
	r.mu.Lock()
	serviceID, ok := r.controls[ev.ControlID]
	if ok {
		delete(r.controls, ev.ControlID)
	}
	r.mu.Unlock()

	if !ok {
		r.log.Debug("ignoring unmatched control activation", zap.String("control_id", ev.ControlID))
		return nil
	}

	entry, err := r.catalog.Resolve(serviceID)
	if err != nil {
		// Catalog miss is an unmatched dispatch, not a user error.
		r.log.Debug("ignoring activation for unknown service", zap.String("service", serviceID))
		return nil
	}

	formID := uuid.NewString()
	r.mu.Lock()
	r.forms[formID] = entry.ServiceID
	r.mu.Unlock()

	return ix.OpenForm(ctx, Form{
		ID:    formID,
		Title: present.FormTitle(entry),
		Fields: []FormField{{
			ID:          FieldURL,
			Label:       present.FormFieldLabel(),
			Placeholder: present.FormFieldPlaceholder(),
			Required:    true,
		}},
	})
}

// HandleForm consumes a form submission, acknowledges it, and hands off
// to the order-placing task. It returns as soon as the task is started so
// new commands are never blocked by an order in flight.
func (r *Router) HandleForm(ctx context.Context, ev FormSubmitted, ix Interaction) error {
	r.mu.Lock()
	serviceID, ok := r.forms[ev.FormID]
	if ok {
		delete(r.forms, ev.FormID)
	}
	r.mu.Unlock()

	if !ok {
		r.log.Debug("ignoring unmatched form submission", zap.String("form_id", ev.FormID))
		return nil
	}

	link := ev.Fields[FieldURL]

	if err := ix.Acknowledge(ctx); err != nil {
		// No provisional reply exists, so nothing is owed a finalization.
		r.log.Error("acknowledge failed", zap.String("service", serviceID), zap.Error(err))
		return err
	}

	r.tasks.Add(1)
	go r.runOrder(ix, serviceID, link)
	return nil
}

// runOrder is the independent order-placing task: one entry, one exit,
// and exactly one finalization no matter how the task ends. It runs on a
// fresh context because there is no cancellation path once the order call
// is issued.
func (r *Router) runOrder(ix Interaction, serviceID, link string) {
	defer r.tasks.Done()

	ctx := context.Background()
	finalized := false

	defer func() {
		p := recover()
		if p != nil {
			r.log.Error("order task exited abnormally",
				zap.String("service", serviceID),
				zap.Any("panic", p))
		}
		if !finalized {
			text := present.Outcome(smm.Failed(smm.ReasonUnspecified))
			if err := ix.Finalize(ctx, text); err != nil {
				r.log.Error("finalize after abnormal exit failed", zap.Error(err))
			}
		}
	}()

	result := r.orders.PlaceOrder(ctx, smm.NewOrderRequest(serviceID, link))

	finalized = true
	if err := ix.Finalize(ctx, present.Outcome(result)); err != nil {
		r.log.Error("finalize failed",
			zap.String("service", serviceID),
			zap.Bool("success", result.Success()),
			zap.Error(err))
	}
}

// Wait blocks until all in-flight order tasks have finalized. Used for
// graceful drain at shutdown.
func (r *Router) Wait() {
	r.tasks.Wait()
}
