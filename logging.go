package ecochat

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "ecochat"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) StartSession(ctx context.Context, sessionID string) error {
	log := mw.log.With(
		zap.String("action", "start_session"),
		zap.String("session_id", sessionID),
	)

	err := mw.next.StartSession(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("session started")
	return nil
}

func (mw *loggingMiddleware) EndSession(ctx context.Context, sessionID string) error {
	log := mw.log.With(
		zap.String("action", "end_session"),
		zap.String("session_id", sessionID),
	)

	err := mw.next.EndSession(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("session ended")
	return nil
}

func (mw *loggingMiddleware) UpdateSettings(ctx context.Context, sessionID string, settings GenerationConfig) error {
	log := mw.log.With(
		zap.String("action", "update_settings"),
		zap.String("session_id", sessionID),
		zap.Float32("temperature", settings.Temperature),
		zap.Float32("top_p", settings.TopP),
		zap.Int32("top_k", settings.TopK),
		zap.Int32("max_output_tokens", settings.MaxOutputTokens),
	)

	err := mw.next.UpdateSettings(ctx, sessionID, settings)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("settings applied")
	return nil
}

func (mw *loggingMiddleware) SendMessage(ctx context.Context, sessionID string, text string) (string, error) {
	log := mw.log.With(
		zap.String("action", "send_message"),
		zap.String("session_id", sessionID),
	)

	reply, err := mw.next.SendMessage(ctx, sessionID, text)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("message handled", zap.Int("reply_len", len(reply)))
	return reply, nil
}

func (mw *loggingMiddleware) History(ctx context.Context, sessionID string) ([]Message, error) {
	log := mw.log.With(
		zap.String("action", "history"),
		zap.String("session_id", sessionID),
	)

	messages, err := mw.next.History(ctx, sessionID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("history listed", zap.Int("count", len(messages)))
	return messages, nil
}

func (mw *loggingMiddleware) DefaultSettings() GenerationConfig {
	return mw.next.DefaultSettings()
}
