package notify

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier delivers a short status message to operators.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// MessageCreator is the part of the Twilio API used to send messages.
type MessageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

var errMissingCredentials = errors.New("missing required Twilio environment variables")

// SMSNotifier sends messages by SMS to every number in To.
type SMSNotifier struct {
	To     []string
	From   string
	Client MessageCreator
}

// NewSMSNotifier builds a notifier from TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN
// and TWILIO_FROM_NUMBER.
func NewSMSNotifier(to []string) (*SMSNotifier, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromNumber := os.Getenv("TWILIO_FROM_NUMBER")

	if accountSid == "" || authToken == "" || fromNumber == "" {
		return nil, errMissingCredentials
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return &SMSNotifier{To: to, From: fromNumber, Client: client.Api}, nil
}

// SendSMS sends body to the phone number to and returns an error if the API call fails.
func (n *SMSNotifier) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(n.From)
	params.SetBody(body)

	resp, err := n.Client.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", to, err)
	}

	if resp.Status != nil && *resp.Status == "failed" {
		return fmt.Errorf("SMS to %s failed with status: %s", to, *resp.Status)
	}

	return nil
}

// Notify sends message to every recipient and joins the failures.
func (n *SMSNotifier) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, to := range n.To {
		if err := n.SendSMS(ctx, to, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }
