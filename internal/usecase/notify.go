package usecase

import (
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"lockerhub-backend/internal/domain"
)

// Notifier is one outbound chat channel.
type Notifier interface {
	Send(text string) error
}

// NotifyRouter fans a status-transition message out to the configured
// channels. Dispatch is fire-and-forget: by the time a notification is
// attempted the order mutation has already been committed, so a channel
// failure is logged and never fails the owning request.
type NotifyRouter struct {
	Orders     Notifier
	Fast       Notifier
	PaymentOps Notifier
}

// OrderEvent posts to the orders channel, plus the fast channel when the
// order is flagged for expedited pickup.
func (r *NotifyRouter) OrderEvent(o *domain.Order, text string) {
	targets := []dispatch{{r.Orders, "orders"}}
	if o.IsExpedited() {
		targets = append(targets, dispatch{r.Fast, "fast"})
	}
	r.fanOut(targets, text)
}

// PaymentSettled posts the settlement to the orders channel and a fuller
// message, including customer contact details, to the payment-ops channel.
func (r *NotifyRouter) PaymentSettled(o *domain.Order, text string) {
	r.fanOut([]dispatch{{r.Orders, "orders"}}, text)
	full := fmt.Sprintf("%s\nEmail: %s\nPhone: %s", text, orNA(o.CustomerEmail), orNA(o.CustomerPhone))
	r.fanOut([]dispatch{{r.PaymentOps, "payment-ops"}}, full)
}

type dispatch struct {
	ch   Notifier
	name string
}

func (r *NotifyRouter) fanOut(targets []dispatch, text string) {
	go func() {
		var g errgroup.Group
		for _, t := range targets {
			if t.ch == nil {
				continue
			}
			t := t
			g.Go(func() error {
				if err := t.ch.Send(text); err != nil {
					log.Printf("[notify] %s channel send failed: %v", t.name, err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orderSummary(o *domain.Order) string {
	pickup := ""
	if o.PickupOption != "" {
		pickup = fmt.Sprintf("\nPickup: %s", o.PickupOption)
		if o.PickupSurchargeGbp > 0 {
			pickup += fmt.Sprintf(" (surcharge £%g)", o.PickupSurchargeGbp)
		}
	}
	email := ""
	if o.CustomerEmail != "" {
		email = "\nEmail: " + o.CustomerEmail
	}
	return fmt.Sprintf("Product: %s\nTotal: £%g%s\nHub: %s %s\nName: %s\nPhone: %s%s",
		o.ProductName, o.PriceGbp, pickup, o.HubName, o.HubPostcode, o.CustomerName, o.CustomerPhone, email)
}
