package ecochat

import (
	"context"
	"errors"
)

// ProxyMiddleware drives a remote ecochat through its endpoints, exposing the
// same Service interface locally.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) StartSession(ctx context.Context, sessionID string) error {
	req := StartSessionRequest{
		SessionID: sessionID,
	}

	_, err := mw.endpoints.StartSession(ctx, req)
	return err
}

func (mw *proxyMiddleware) EndSession(ctx context.Context, sessionID string) error {
	_, err := mw.endpoints.EndSession(ctx, sessionID)
	return err
}

func (mw *proxyMiddleware) UpdateSettings(ctx context.Context, sessionID string, settings GenerationConfig) error {
	req := UpdateSettingsRequest{
		SessionID: sessionID,
		Settings:  settings,
	}

	_, err := mw.endpoints.UpdateSettings(ctx, req)
	return err
}

func (mw *proxyMiddleware) SendMessage(ctx context.Context, sessionID string, text string) (string, error) {
	req := SendMessageRequest{
		SessionID: sessionID,
		Text:      text,
	}

	resp, err := mw.endpoints.SendMessage(ctx, req)
	if err != nil {
		return "", err
	}

	result, ok := resp.(SendMessageResponse)
	if !ok {
		return "", errors.New("invalid response type")
	}

	return result.Reply, nil
}

func (mw *proxyMiddleware) History(ctx context.Context, sessionID string) ([]Message, error) {
	resp, err := mw.endpoints.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, ok := resp.([]Message)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return messages, nil
}

// DefaultSettings returns the stock defaults. The remote's configured
// defaults are not queryable over the wire; they arrive in
// StartSessionResponse.Settings when a session is started.
func (mw *proxyMiddleware) DefaultSettings() GenerationConfig {
	return DefaultGenerationConfig()
}
