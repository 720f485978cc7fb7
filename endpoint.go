package ecochat

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/google/uuid"
)

type EndpointSet struct {
	StartSession   endpoint.Endpoint
	EndSession     endpoint.Endpoint
	UpdateSettings endpoint.Endpoint
	SendMessage    endpoint.Endpoint
	History        endpoint.Endpoint
}

type StartSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type StartSessionResponse struct {
	SessionID string           `json:"session_id"`
	Settings  GenerationConfig `json:"settings"`
}

func StartSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(StartSessionRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		if err := svc.StartSession(ctx, sessionID); err != nil {
			return nil, err
		}

		// The settings surface the client should present.
		resp := StartSessionResponse{
			SessionID: sessionID,
			Settings:  svc.DefaultSettings(),
		}

		return resp, nil
	}
}

func EndSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.EndSession(ctx, sessionID)
		return nil, err
	}
}

type UpdateSettingsRequest struct {
	SessionID string           `json:"session_id"`
	Settings  GenerationConfig `json:"settings"`
}

func UpdateSettingsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(UpdateSettingsRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.UpdateSettings(ctx, req.SessionID, req.Settings)
		return nil, err
	}
}

type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type SendMessageResponse struct {
	Reply string `json:"reply"`
}

func SendMessageEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SendMessageRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		reply, err := svc.SendMessage(ctx, req.SessionID, req.Text)
		if err != nil {
			return nil, err
		}

		return SendMessageResponse{Reply: reply}, nil
	}
}

func HistoryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		sessionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.History(ctx, sessionID)
	}
}
