package xendit

import (
	"github.com/cmlabs-hris/plan-billing/internal/config"
	xenditSDK "github.com/xendit/xendit-go/v7"
	"github.com/xendit/xendit-go/v7/invoice"
)

// Client wraps the official Xendit SDK
type Client struct {
	invoiceAPI  invoice.InvoiceApi
	environment string
	options     OrderOptions
}

// NewClient creates a new Xendit client using the official SDK
func NewClient(cfg config.XenditConfig, currency string) *Client {
	sdk := xenditSDK.NewClient(cfg.APIKey)

	return &Client{
		invoiceAPI:  sdk.InvoiceApi,
		environment: cfg.Environment,
		options: OrderOptions{
			Currency:           currency,
			InvoiceDuration:    cfg.InvoiceDuration,
			SuccessRedirectURL: cfg.SuccessRedirectURL,
			FailureRedirectURL: cfg.FailureRedirectURL,
		},
	}
}

// IsSandbox returns true if running in sandbox mode
func (c *Client) IsSandbox() bool {
	return c.environment == "sandbox"
}
