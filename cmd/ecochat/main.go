package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/ecochat"
	"github.com/flarexio/ecochat/gemini"
	"github.com/flarexio/ecochat/persistence/chromem"

	httpT "github.com/flarexio/ecochat/transport/http"
	natsT "github.com/flarexio/ecochat/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "ecochat",
		Usage: "Retrieval-augmented chat assistant service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the ecochat working directory",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Gemini API key",
				Sources: cli.EnvVars("GEMINI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL; empty disables the NATS transport",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".flarex", "ecochat")
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		return err
	}
	defer f.Close()

	var cfg ecochat.Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return err
	}

	cfg.Vector.Path = filepath.Join(path, "vectors")

	client, err := gemini.NewClient(ctx, cmd.String("api-key"))
	if err != nil {
		return err
	}

	embedder := gemini.NewEmbedder(client, cfg.Model)
	provider := gemini.NewChatProvider(client, cfg.Model)

	vector, err := chromem.NewChromemVectorDB(cfg.Vector)
	if err != nil {
		return err
	}

	svc, err := ecochat.NewService(ctx, cfg, vector, provider, embedder)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc = ecochat.LoggingMiddleware(log)(svc)

	endpoints := ecochat.EndpointSet{
		StartSession:   ecochat.StartSessionEndpoint(svc),
		EndSession:     ecochat.EndSessionEndpoint(svc),
		UpdateSettings: ecochat.UpdateSettingsEndpoint(svc),
		SendMessage:    ecochat.SendMessageEndpoint(svc),
		History:        ecochat.HistoryEndpoint(svc),
	}

	natsURL := cmd.String("nats")
	if natsURL != "" {
		nc, err := nats.Connect(natsURL,
			nats.Name("EcoChat Server"),
		)

		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "ecochat",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup("ecochat")
		natsT.AddEndpoints(root, endpoints)
	}

	r := gin.Default()
	httpT.AddRouters(r, endpoints)

	go r.Run(cmd.String("http-addr"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}
