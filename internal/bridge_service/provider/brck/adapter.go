// Package brck adapts the BRCK messaging API to the bridge.
package brck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aradsms/smsbridge/internal/bridge_service/adapters/carrierhttp"
	"github.com/aradsms/smsbridge/internal/bridge_service/app"
	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
	"github.com/aradsms/smsbridge/internal/bridge_service/provider"
)

const (
	ProviderKey     = "brck"
	DisplayName     = "BRCK"
	APIDocsURL      = "https://portal.brck.com/api/v1/docs"
	APIVersion      = "v1.0"
	DefaultEndpoint = "https://api.brck.com/api/v1/callbacks/outbound/messaging"

	FieldBearerToken = "bearer_token"
	FieldAPIToken    = "api_token"
	FieldAPISecret   = "api_secret"

	defaultModule = "Smsconnector"
)

var (
	errMediaOnSendMessage = errors.New("SendMessage carries text only; use SendMedia for attachments")
	errNoMediaOnSendMedia = errors.New("SendMedia requires at least one media reference")
)

// Schema is what the configuration subsystem renders for BRCK.
var Schema = domain.ConfigSchema{
	{
		Name:        FieldBearerToken,
		Type:        domain.FieldSecret,
		Label:       "Bearer Token",
		Help:        "Enter the BRCK Bearer Token",
		Default:     "",
		Required:    true,
		Placeholder: "Enter Bearer Token",
	},
	{
		Name:        FieldAPIToken,
		Type:        domain.FieldString,
		Label:       "Media API Token",
		Help:        "Token used with the API secret to download MMS media. Leave empty to use the bearer token.",
		Default:     "",
		Placeholder: "Enter API Token",
	},
	{
		Name:        FieldAPISecret,
		Type:        domain.FieldSecret,
		Label:       "Media API Secret",
		Help:        "Secret paired with the media API token.",
		Default:     "",
		Placeholder: "Enter API Secret",
	},
}

type Options struct {
	Config     domain.ConfigSource
	Store      domain.MessageStore
	HTTPClient *http.Client
	// Endpoint overrides DefaultEndpoint.
	Endpoint string
	// Module is the name carried on emitted inbound events.
	Module string
	Logger *slog.Logger
}

type Adapter struct {
	config     domain.ConfigSource
	store      domain.MessageStore
	dispatcher *app.Dispatcher
	webhook    *app.WebhookHandler
	logger     *slog.Logger
}

var _ provider.Adapter = (*Adapter)(nil)

func New(opts Options) *Adapter {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	module := opts.Module
	if module == "" {
		module = defaultModule
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	client := carrierhttp.NewClient(opts.HTTPClient)
	logger := opts.Logger.With("provider", ProviderKey)

	dispatcher := app.NewDispatcher(app.OutboundTarget{
		ProviderKey: ProviderKey,
		Endpoint:    endpoint,
		Encode:      app.JSONPayload(true),
		Authorize:   app.BearerFromField(FieldBearerToken),
	}, client, opts.Logger)
	media := app.NewMediaFetcher(ProviderKey, client, opts.Store, opts.Logger)
	webhook := app.NewWebhookHandler(ProviderKey, module, app.PayloadParserFunc(ParseWebhook), opts.Store, media, opts.Logger)

	return &Adapter{
		config:     opts.Config,
		store:      opts.Store,
		dispatcher: dispatcher,
		webhook:    webhook,
		logger:     logger,
	}
}

func (a *Adapter) Info() provider.Info {
	return provider.Info{
		Name:       DisplayName,
		Key:        ProviderKey,
		APIDocsURL: APIDocsURL,
		APIVersion: APIVersion,
	}
}

func (a *Adapter) ConfigSchema() domain.ConfigSchema { return Schema }

// SendMessage sends a text-only message and marks it delivered on success.
func (a *Adapter) SendMessage(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryOutcome, error) {
	if msg.HasMedia() {
		return domain.DeliveryOutcome{}, errMediaOnSendMessage
	}
	return a.send(ctx, msg)
}

// SendMedia sends attachments, with the text alongside when present.
func (a *Adapter) SendMedia(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryOutcome, error) {
	if !msg.HasMedia() {
		return domain.DeliveryOutcome{}, errNoMediaOnSendMedia
	}
	return a.send(ctx, msg)
}

func (a *Adapter) send(ctx context.Context, msg domain.OutboundMessage) (domain.DeliveryOutcome, error) {
	creds, err := domain.LoadCredentials(ctx, a.config, ProviderKey, Schema)
	if err != nil {
		return domain.DeliveryOutcome{}, err
	}
	outcome, err := a.dispatcher.Dispatch(ctx, msg, creds)
	if err != nil {
		return outcome, err
	}
	if err := a.store.SetDelivered(ctx, msg.InternalID); err != nil {
		a.logger.ErrorContext(ctx, "Carrier accepted message but marking it delivered failed",
			"internal_message_id", msg.InternalID, "error", err)
		return outcome, fmt.Errorf("mark message %s delivered: %w", msg.InternalID, err)
	}
	return outcome, nil
}

// HandleWebhook processes one BRCK callback and returns the status to answer with.
func (a *Adapter) HandleWebhook(r *http.Request) (int, error) {
	return a.webhook.Handle(r, a.mediaAuth)
}

// mediaAuth prefers Basic auth from api_token/api_secret and falls back to
// the bearer token.
func (a *Adapter) mediaAuth(ctx context.Context) (carrierhttp.Auth, error) {
	fields, err := a.config.GetConfig(ctx, ProviderKey)
	if err != nil {
		return nil, &domain.AuthError{ProviderKey: ProviderKey, Err: err}
	}
	if token, secret := fields[FieldAPIToken], fields[FieldAPISecret]; token != "" && secret != "" {
		return carrierhttp.Basic(token, secret), nil
	}
	if bearer := fields[FieldBearerToken]; bearer != "" {
		return carrierhttp.Bearer(bearer), nil
	}
	return nil, &domain.AuthError{ProviderKey: ProviderKey, Err: errors.New("no media credentials configured")}
}
