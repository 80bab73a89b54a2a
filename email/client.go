// Package email provides email client functionality
package email

import (
	"fmt"
	"os"

	"github.com/resendlabs/resend-go"

	"github.com/influence-engine/funnel-go/email/templates"
	"github.com/influence-engine/funnel-go/models"
	"github.com/influence-engine/funnel-go/pricing"
)

type Client struct {
	resend    *resend.Client
	fromEmail string
	fromName  string
	memberURL string
}

func NewClient() (*Client, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	fromEmail := os.Getenv("EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "orders@influence-engine.com"
	}

	fromName := os.Getenv("EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "The Influence Engine"
	}

	client := resend.NewClient(apiKey)

	return &Client{
		resend:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		memberURL: os.Getenv("MEMBER_AREA_URL"),
	}, nil
}

// SendPurchaseReceipt sends the order confirmation for a completed purchase.
func (c *Client) SendPurchaseReceipt(to, firstname string, products []models.ProductKey, total float64) error {
	names := make([]string, 0, len(products))
	for _, key := range products {
		if product, err := pricing.Get(key); err == nil {
			names = append(names, product.Name)
		} else {
			names = append(names, string(key))
		}
	}

	content := templates.GetReceiptEmailContent(templates.ReceiptEmailProps{
		Firstname:    firstname,
		ProductNames: names,
		Total:        total,
		MemberURL:    c.memberURL,
	})

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader: "Your order confirmation",
		Content:   content,
	})

	request := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{to},
		Subject: "Your order confirmation",
		Html:    htmlContent,
	}

	if _, err := c.resend.Emails.Send(request); err != nil {
		return fmt.Errorf("failed to send receipt email: %w", err)
	}
	return nil
}
