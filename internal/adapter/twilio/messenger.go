// Package twilio sends WhatsApp replies through the Twilio REST API and
// verifies inbound webhook signatures.
package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	twiliosdk "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const addressPrefix = "whatsapp:"

type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

type Messenger struct {
	api  messageCreator
	from string
}

// NewMessenger sends from the WhatsApp-enabled number fromNumber. timeout
// bounds each REST call; zero means no limit.
func NewMessenger(accountSID, authToken, fromNumber string, timeout time.Duration) *Messenger {
	return newMessenger(accountSID, authToken, fromNumber, &http.Client{Timeout: timeout})
}

func newMessenger(accountSID, authToken, fromNumber string, httpClient *http.Client) *Messenger {
	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(accountSID, authToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(accountSID)

	client := twiliosdk.NewRestClientWithParams(twiliosdk.ClientParams{
		Username: accountSID,
		Password: authToken,
		Client:   base,
	})
	return &Messenger{
		api:  client.Api,
		from: fromNumber,
	}
}

// Send delivers text to the WhatsApp number to. The SDK call does not take
// a context, so ctx is only checked before the request starts and the
// HTTP client timeout bounds the call itself.
func (m *Messenger) Send(ctx context.Context, to, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(addressPrefix + m.from)
	params.SetTo(addressPrefix + to)
	params.SetBody(text)

	if _, err := m.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}
	return nil
}

// SignatureValidator checks the X-Twilio-Signature header of webhook calls
// made to a fixed public URL.
type SignatureValidator struct {
	validator twilioclient.RequestValidator
	url       string
}

func NewSignatureValidator(authToken, webhookURL string) *SignatureValidator {
	return &SignatureValidator{
		validator: twilioclient.NewRequestValidator(authToken),
		url:       webhookURL,
	}
}

func (v *SignatureValidator) Valid(signature string, form url.Values) bool {
	if signature == "" {
		return false
	}
	params := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return v.validator.Validate(v.url, params, signature)
}
