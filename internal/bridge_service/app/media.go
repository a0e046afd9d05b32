package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/aradsms/smsbridge/internal/bridge_service/adapters/carrierhttp"
	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
)

// MaxMediaBytes caps a single attachment download.
const MaxMediaBytes = 10 << 20 // 10 MB

// MediaFetcher downloads attachments referenced by inbound webhooks and
// hands the bytes to the media store. Authentication is supplied per call.
type MediaFetcher struct {
	providerKey string
	client      *carrierhttp.Client
	store       domain.MediaStore
	logger      *slog.Logger
}

func NewMediaFetcher(providerKey string, client *carrierhttp.Client, store domain.MediaStore, logger *slog.Logger) *MediaFetcher {
	return &MediaFetcher{
		providerKey: providerKey,
		client:      client,
		store:       store,
		logger:      logger.With("component", "media_fetcher", "provider", providerKey),
	}
}

// Fetch downloads rawURL. Any network failure or non-2xx status is a
// *domain.MediaFetchError.
func (f *MediaFetcher) Fetch(ctx context.Context, rawURL string, auth carrierhttp.Auth) ([]byte, error) {
	resp, err := f.client.Do(ctx, carrierhttp.Request{
		Method:           http.MethodGet,
		URL:              rawURL,
		Auth:             auth,
		MaxResponseBytes: MaxMediaBytes,
	})
	if err != nil {
		mediaFetchCounter.WithLabelValues(f.providerKey, "transport_error").Inc()
		return nil, &domain.MediaFetchError{URL: rawURL, Err: err}
	}
	if !resp.Success() {
		mediaFetchCounter.WithLabelValues(f.providerKey, "http_error").Inc()
		return nil, &domain.MediaFetchError{URL: rawURL, HTTPStatus: resp.StatusCode}
	}
	if resp.Truncated {
		mediaFetchCounter.WithLabelValues(f.providerKey, "too_large").Inc()
		return nil, &domain.MediaFetchError{
			URL:        rawURL,
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("%w: more than %d bytes", domain.ErrMediaTooLarge, MaxMediaBytes),
		}
	}
	mediaFetchCounter.WithLabelValues(f.providerKey, "success").Inc()
	return resp.Body, nil
}

// FetchAndStore downloads rawURL and stores it under MediaName(messageID, rawURL).
func (f *MediaFetcher) FetchAndStore(ctx context.Context, messageID, rawURL string, auth carrierhttp.Auth) (string, error) {
	name, err := MediaName(messageID, rawURL)
	if err != nil {
		return "", &domain.MediaFetchError{URL: rawURL, Err: err}
	}
	data, err := f.Fetch(ctx, rawURL, auth)
	if err != nil {
		return "", err
	}
	if err := f.store.AddMedia(ctx, messageID, name, data); err != nil {
		mediaFetchCounter.WithLabelValues(f.providerKey, "store_error").Inc()
		return "", fmt.Errorf("store media %s: %w", name, err)
	}
	f.logger.InfoContext(ctx, "Stored inbound media", "message_id", messageID, "name", name, "bytes", len(data))
	return name, nil
}

// MediaName is the message id followed by the base name of the URL path,
// e.g. ("42", "https://carrier/m/1.jpg") -> "421.jpg".
func MediaName(messageID, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse media url: %w", err)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return "", fmt.Errorf("media url %q has no file name", rawURL)
	}
	return messageID + base, nil
}
