package ecochat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flarexio/ecochat/vector"
)

const defaultTopK = 10

// Service defines the core logic of ecochat.
type Service interface {

	// Close drops all sessions and stops background work.
	Close() error

	// StartSession opens the vector collection and registers per-session
	// state under the given ID. The session starts without a chat handle;
	// the first settings update creates one.
	StartSession(ctx context.Context, sessionID string) error

	// EndSession discards the session's state.
	EndSession(ctx context.Context, sessionID string) error

	// UpdateSettings validates and applies a new generation config to the
	// session, replacing it wholesale. If a chat already exists, its history
	// is carried into a new handle so the config applies to the next send.
	UpdateSettings(ctx context.Context, sessionID string, settings GenerationConfig) error

	// SendMessage retrieves relevant passages, builds a grounded prompt and
	// sends it through the session's chat handle, returning the reply.
	SendMessage(ctx context.Context, sessionID string, text string) (string, error)

	// History returns the session's chat history in turn order.
	History(ctx context.Context, sessionID string) ([]Message, error)

	// DefaultSettings returns the generation config new sessions start with.
	DefaultSettings() GenerationConfig
}

type ServiceMiddleware func(Service) Service

func NewService(ctx context.Context, cfg Config, db vector.VectorDB, provider ChatProvider, embedder Embedder) (Service, error) {
	log := zap.L().With(
		zap.String("service", "ecochat"),
	)

	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = DefaultPromptTemplate
	}

	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}

	if cfg.Generation == (GenerationConfig{}) {
		cfg.Generation = DefaultGenerationConfig()
	}

	if err := cfg.Generation.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	svc := &service{
		sessions: make(map[string]*Session),

		db:       db,
		provider: provider,
		embed:    EmbeddingFunc(embedder),

		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if ttl := cfg.SessionTTL.Duration(); ttl > 0 {
		go svc.janitor(ctx, ttl)
	}

	return svc, nil
}

type service struct {
	sessions     map[string]*Session
	sessionMutex sync.RWMutex

	db       vector.VectorDB
	provider ChatProvider
	embed    vector.EmbeddingFunc

	cfg    Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func (svc *service) Close() error {
	if svc.cancel != nil {
		svc.cancel()
		svc.cancel = nil
	}

	svc.sessionMutex.Lock()
	svc.sessions = make(map[string]*Session)
	svc.sessionMutex.Unlock()

	return nil
}

func (svc *service) StartSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	if svc.db == nil {
		return ErrVectorDBNotSet
	}

	svc.sessionMutex.Lock()
	defer svc.sessionMutex.Unlock()

	if _, ok := svc.sessions[sessionID]; ok {
		return ErrSessionAlreadyExists
	}

	collection, err := svc.db.Collection(svc.cfg.Vector.Collection, svc.embed)
	if err != nil {
		return err
	}

	session := &Session{
		ID:         sessionID,
		Collection: collection,

		config: svc.cfg.Generation,
	}
	session.Touch()

	svc.sessions[sessionID] = session

	return nil
}

func (svc *service) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	svc.sessionMutex.Lock()
	defer svc.sessionMutex.Unlock()

	if _, ok := svc.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}

	delete(svc.sessions, sessionID)

	return nil
}

func (svc *service) UpdateSettings(ctx context.Context, sessionID string, settings GenerationConfig) error {
	// Reject the whole update before touching any session state, so an
	// out-of-range field leaves the prior config and chat handle untouched.
	if err := settings.Validate(); err != nil {
		return err
	}

	session, err := svc.session(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	var history []Message
	if session.chat != nil {
		history = session.chat.History()
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	chat, err := svc.provider.NewChat(ctx, settings, history)
	if err != nil {
		return err
	}

	session.config = settings
	session.chat = chat
	session.Touch()

	return nil
}

func (svc *service) SendMessage(ctx context.Context, sessionID string, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	session, err := svc.session(sessionID)
	if err != nil {
		return "", err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	// Guard before any network call.
	if session.chat == nil {
		return "", ErrNoActiveChat
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	docs, err := session.Collection.Query(ctx, text, svc.cfg.TopK)
	if err != nil {
		return "", err
	}

	passages := make([]string, len(docs))
	for i, doc := range docs {
		passages[i] = doc.Content
	}

	prompt := BuildPrompt(svc.cfg.PromptTemplate, text, passages)

	reply, err := session.chat.Send(ctx, prompt)
	if err != nil {
		return "", err
	}

	session.Touch()

	return reply, nil
}

func (svc *service) History(ctx context.Context, sessionID string) ([]Message, error) {
	session, err := svc.session(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.chat == nil {
		return nil, ErrNoActiveChat
	}

	return session.chat.History(), nil
}

func (svc *service) DefaultSettings() GenerationConfig {
	return svc.cfg.Generation
}

func (svc *service) session(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}

	svc.sessionMutex.RLock()
	defer svc.sessionMutex.RUnlock()

	session, ok := svc.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

func (svc *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := svc.cfg.RequestTimeout.Duration(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}

	return context.WithCancel(ctx)
}

func (svc *service) janitor(ctx context.Context, ttl time.Duration) {
	log := svc.log.With(
		zap.String("action", "session_janitor"),
		zap.Duration("ttl", ttl),
	)

	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("done")
			return

		case <-ticker.C:
			svc.sessionMutex.Lock()
			for id, session := range svc.sessions {
				if !session.IsIdle(ttl) {
					continue
				}

				delete(svc.sessions, id)

				log.Info("idle session reaped",
					zap.String("session_id", id),
				)
			}
			svc.sessionMutex.Unlock()
		}
	}
}
