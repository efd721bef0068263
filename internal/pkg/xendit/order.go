package xendit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/proration"
)

// ErrEmptyOrder is returned when an order has nothing to charge
var ErrEmptyOrder = errors.New("order has no items")

// Payer identifies who receives the payment request
type Payer struct {
	Email string
}

// OrderOptions holds the invoice settings shared by every order
type OrderOptions struct {
	Currency           string
	InvoiceDuration    time.Duration
	SuccessRedirectURL string
	FailureRedirectURL string
}

// NewOrderInvoiceRequest translates an order into a Xendit invoice request.
// The order ID becomes the external ID, so a resubmitted order maps onto the
// same Xendit invoice reference.
func NewOrderInvoiceRequest(order plan.Order, payer Payer, opts OrderOptions) (CreateInvoiceRequest, error) {
	if len(order.Items) == 0 {
		return CreateInvoiceRequest{}, ErrEmptyOrder
	}

	items := make([]InvoiceItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = InvoiceItem{
			Name:     item.ID,
			Quantity: 1,
			Price:    proration.RoundCurrency(item.Price),
		}
	}

	return CreateInvoiceRequest{
		ExternalID:         order.ID,
		Amount:             proration.RoundCurrency(order.Total()),
		Description:        fmt.Sprintf("Order %s (%d items)", order.ID, len(order.Items)),
		PayerEmail:         payer.Email,
		Currency:           opts.Currency,
		InvoiceDuration:    int(opts.InvoiceDuration.Seconds()),
		SuccessRedirectURL: opts.SuccessRedirectURL,
		FailureRedirectURL: opts.FailureRedirectURL,
		Items:              items,
		Metadata:           map[string]string{"order_id": order.ID},
	}, nil
}

// SubmitOrder creates a Xendit invoice for the order
func (c *Client) SubmitOrder(ctx context.Context, order plan.Order, payer Payer) (*InvoiceResponse, error) {
	req, err := NewOrderInvoiceRequest(order, payer, c.options)
	if err != nil {
		return nil, err
	}
	return c.CreateInvoice(ctx, req)
}
