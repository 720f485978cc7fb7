package ecochat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/flarexio/ecochat/vector"
)

type fakeEmbedder struct {
	calls int
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}

	return vectors, nil
}

type fakeVectorDB struct {
	collections map[string]*fakeCollection
}

func (db *fakeVectorDB) Collection(name string, embed vector.EmbeddingFunc) (vector.Collection, error) {
	if db.collections == nil {
		db.collections = make(map[string]*fakeCollection)
	}

	if c, ok := db.collections[name]; ok {
		return c, nil
	}

	c := &fakeCollection{embed: embed}
	db.collections[name] = c

	return c, nil
}

type fakeCollection struct {
	docs    []vector.Document
	embed   vector.EmbeddingFunc
	queries int
}

func (c *fakeCollection) AddDocument(ctx context.Context, doc vector.Document) error {
	c.docs = append(c.docs, doc)
	return nil
}

func (c *fakeCollection) FindDocument(ctx context.Context, id string) (vector.Document, error) {
	for _, doc := range c.docs {
		if doc.ID == id {
			return doc, nil
		}
	}

	return vector.Document{}, errors.New("document not found")
}

func (c *fakeCollection) Query(ctx context.Context, query string, k int) ([]vector.Document, error) {
	c.queries++

	// The query text is embedded before searching, as the real store does.
	if _, err := c.embed(ctx, query); err != nil {
		return nil, err
	}

	if k > len(c.docs) {
		k = len(c.docs)
	}

	return append([]vector.Document{}, c.docs[:k]...), nil
}

type fakeChatProvider struct {
	created int
	last    *fakeChat
}

func (p *fakeChatProvider) NewChat(ctx context.Context, config GenerationConfig, history []Message) (Chat, error) {
	p.created++

	chat := &fakeChat{
		config:  config,
		history: append([]Message{}, history...),
	}
	p.last = chat

	return chat, nil
}

type fakeChat struct {
	config  GenerationConfig
	history []Message
}

func (c *fakeChat) Send(ctx context.Context, prompt string) (string, error) {
	reply := "echo: " + prompt

	c.history = append(c.history,
		Message{Role: RoleUser, Text: prompt},
		Message{Role: RoleModel, Text: reply},
	)

	return reply, nil
}

func (c *fakeChat) History() []Message {
	return append([]Message{}, c.history...)
}

type ecoChatTestSuite struct {
	suite.Suite
	ctx      context.Context
	svc      Service
	db       *fakeVectorDB
	provider *fakeChatProvider
	embedder *fakeEmbedder
}

func (suite *ecoChatTestSuite) SetupTest() {
	ctx := context.Background()

	cfg := Config{
		Vector: vector.Config{
			Collection: "sme_db",
		},
	}

	db := &fakeVectorDB{}
	provider := &fakeChatProvider{}
	embedder := &fakeEmbedder{}

	svc, err := NewService(ctx, cfg, db, provider, embedder)
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	suite.ctx = ctx
	suite.svc = svc
	suite.db = db
	suite.provider = provider
	suite.embedder = embedder
}

func (suite *ecoChatTestSuite) seedPassages(texts ...string) {
	collection, err := suite.db.Collection("sme_db", EmbeddingFunc(suite.embedder))
	if err != nil {
		suite.FailNow(err.Error())
		return
	}

	for i, text := range texts {
		doc := vector.Document{
			ID:      string(rune('a' + i)),
			Content: text,
		}

		if err := collection.AddDocument(suite.ctx, doc); err != nil {
			suite.FailNow(err.Error())
			return
		}
	}
}

func (suite *ecoChatTestSuite) TestStartSession() {
	err := suite.svc.StartSession(suite.ctx, "s1")
	suite.NoError(err)

	err = suite.svc.StartSession(suite.ctx, "s1")
	suite.ErrorIs(err, ErrSessionAlreadyExists)

	err = suite.svc.StartSession(suite.ctx, "")
	suite.ErrorIs(err, ErrInvalidSessionID)
}

func (suite *ecoChatTestSuite) TestSettingsCreateChat() {
	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))

	err := suite.svc.UpdateSettings(suite.ctx, "s1", DefaultGenerationConfig())
	suite.NoError(err)
	suite.Equal(1, suite.provider.created)

	// Settings without a prior send keep the history empty.
	history, err := suite.svc.History(suite.ctx, "s1")
	suite.NoError(err)
	suite.Len(history, 0)
}

func (suite *ecoChatTestSuite) TestSettingsUpdatePreservesHistory() {
	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))
	suite.NoError(suite.svc.UpdateSettings(suite.ctx, "s1", DefaultGenerationConfig()))

	_, err := suite.svc.SendMessage(suite.ctx, "s1", "What is composting?")
	suite.NoError(err)

	settings := GenerationConfig{
		Temperature:     0.2,
		TopP:            0.5,
		TopK:            10,
		MaxOutputTokens: 512,
	}

	suite.NoError(suite.svc.UpdateSettings(suite.ctx, "s1", settings))
	suite.Equal(2, suite.provider.created, "settings change rebuilds the handle")
	suite.Equal(settings, suite.provider.last.config, "new config applies to the next send")

	history, err := suite.svc.History(suite.ctx, "s1")
	suite.NoError(err)
	suite.Len(history, 2, "history carries over to the new handle")
}

func (suite *ecoChatTestSuite) TestInvalidSettingsRetainPrior() {
	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))

	settings := DefaultGenerationConfig()
	suite.NoError(suite.svc.UpdateSettings(suite.ctx, "s1", settings))

	bad := settings
	bad.TopK = 150

	err := suite.svc.UpdateSettings(suite.ctx, "s1", bad)
	suite.ErrorIs(err, ErrInvalidConfig)

	suite.Equal(1, suite.provider.created, "rejected update must not touch the chat handle")
	suite.Equal(settings, suite.provider.last.config)
}

func (suite *ecoChatTestSuite) TestSendMessage() {
	suite.seedPassages(
		"Composting breaks down organic waste.",
		"It reduces landfill volume.",
	)

	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))
	suite.NoError(suite.svc.UpdateSettings(suite.ctx, "s1", DefaultGenerationConfig()))

	reply, err := suite.svc.SendMessage(suite.ctx, "s1", "What is composting?")
	suite.NoError(err)
	suite.NotEmpty(reply)

	history, err := suite.svc.History(suite.ctx, "s1")
	suite.NoError(err)
	suite.Len(history, 2, "prompt and reply")

	prompt := history[0].Text
	suite.Contains(prompt, "What is composting?")
	suite.Contains(prompt, "Composting breaks down organic waste.")
	suite.Contains(prompt, "It reduces landfill volume.")
	suite.Equal(RoleUser, history[0].Role)
	suite.Equal(RoleModel, history[1].Role)
}

func (suite *ecoChatTestSuite) TestSendMessageEmptyCollection() {
	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))
	suite.NoError(suite.svc.UpdateSettings(suite.ctx, "s1", DefaultGenerationConfig()))

	reply, err := suite.svc.SendMessage(suite.ctx, "s1", "anything out there?")
	suite.NoError(err, "an empty collection is not an error")
	suite.NotEmpty(reply)
}

func (suite *ecoChatTestSuite) TestMessageBeforeSettings() {
	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))

	_, err := suite.svc.SendMessage(suite.ctx, "s1", "hello?")
	suite.ErrorIs(err, ErrNoActiveChat)

	collection := suite.db.collections["sme_db"]
	suite.Equal(0, collection.queries, "guard must precede retrieval")
	suite.Equal(0, suite.embedder.calls, "guard must precede embedding")
}

func (suite *ecoChatTestSuite) TestSessionIsolation() {
	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))
	suite.NoError(suite.svc.StartSession(suite.ctx, "s2"))

	suite.NoError(suite.svc.UpdateSettings(suite.ctx, "s1", DefaultGenerationConfig()))
	suite.NoError(suite.svc.UpdateSettings(suite.ctx, "s2", DefaultGenerationConfig()))

	_, err := suite.svc.SendMessage(suite.ctx, "s1", "only for s1")
	suite.NoError(err)

	history, err := suite.svc.History(suite.ctx, "s2")
	suite.NoError(err)
	suite.Len(history, 0, "sessions must not share state")
}

func (suite *ecoChatTestSuite) TestConcurrentSettingsAndMessages() {
	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))
	suite.NoError(suite.svc.UpdateSettings(suite.ctx, "s1", DefaultGenerationConfig()))

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()

			_, err := suite.svc.SendMessage(suite.ctx, "s1", "What is composting?")
			errs <- err
		}()

		go func() {
			defer wg.Done()

			settings := DefaultGenerationConfig()
			settings.Temperature = 0.5

			errs <- suite.svc.UpdateSettings(suite.ctx, "s1", settings)
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		suite.NoError(err)
	}

	// Serialized handlers keep prompt/reply pairs intact across reconfigurations.
	history, err := suite.svc.History(suite.ctx, "s1")
	suite.NoError(err)
	suite.Len(history, 100)

	for i, msg := range history {
		if i%2 == 0 {
			suite.Equal(RoleUser, msg.Role)
		} else {
			suite.Equal(RoleModel, msg.Role)
		}
	}
}

func (suite *ecoChatTestSuite) TestEndSession() {
	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))
	suite.NoError(suite.svc.EndSession(suite.ctx, "s1"))

	err := suite.svc.EndSession(suite.ctx, "s1")
	suite.ErrorIs(err, ErrSessionNotFound)

	_, err = suite.svc.SendMessage(suite.ctx, "s1", "anyone home?")
	suite.ErrorIs(err, ErrSessionNotFound)
}

func (suite *ecoChatTestSuite) TestEmptyMessage() {
	suite.NoError(suite.svc.StartSession(suite.ctx, "s1"))
	suite.NoError(suite.svc.UpdateSettings(suite.ctx, "s1", DefaultGenerationConfig()))

	_, err := suite.svc.SendMessage(suite.ctx, "s1", "   ")
	suite.ErrorIs(err, ErrEmptyMessage)
}

func (suite *ecoChatTestSuite) TearDownTest() {
	if suite.svc != nil {
		suite.svc.Close()
	}

	suite.svc = nil
}

func TestEcoChatTestSuite(t *testing.T) {
	suite.Run(t, new(ecoChatTestSuite))
}

func TestNewServiceRejectsBadDefaults(t *testing.T) {
	cfg := Config{
		Generation: GenerationConfig{Temperature: 3},
	}

	_, err := NewService(context.Background(), cfg, &fakeVectorDB{}, &fakeChatProvider{}, &fakeEmbedder{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestStartSessionWithoutVectorDB(t *testing.T) {
	cfg := Config{}

	svc, err := NewService(context.Background(), cfg, nil, &fakeChatProvider{}, &fakeEmbedder{})
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	if err := svc.StartSession(context.Background(), "s1"); !errors.Is(err, ErrVectorDBNotSet) {
		t.Fatalf("expected vector database not set, got %v", err)
	}
}
