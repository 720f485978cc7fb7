package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/ecochat"
	"github.com/flarexio/ecochat/gemini"
	"github.com/flarexio/ecochat/persistence/chromem"
	"github.com/flarexio/ecochat/vector"
)

func main() {
	cmd := &cli.Command{
		Name:  "ecochat-ingest",
		Usage: "Load text passages into the ecochat vector collection",
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
		},
		ArgsUsage: "[text files...]",
		Action:    run,
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
	cfg.Vector.Persistent = true

	client, err := gemini.NewClient(ctx, cmd.String("api-key"))
	if err != nil {
		return err
	}

	embedder := gemini.NewEmbedder(client, cfg.Model)

	db, err := chromem.NewChromemVectorDB(cfg.Vector)
	if err != nil {
		return err
	}

	collection, err := db.Collection(cfg.Vector.Collection, ecochat.EmbeddingFunc(embedder))
	if err != nil {
		return err
	}

	count := 0

	for _, file := range cmd.Args().Slice() {
		log := log.With(
			zap.String("file", file),
		)

		data, err := os.ReadFile(file)
		if err != nil {
			log.Error(err.Error())
			continue
		}

		for _, passage := range splitPassages(string(data)) {
			doc := vector.Document{
				ID:      documentID(passage),
				Content: passage,
				Metadata: map[string]string{
					"source": filepath.Base(file),
				},
			}

			existing, err := collection.FindDocument(ctx, doc.ID)
			if err == nil && existing.ID == doc.ID {
				continue
			}

			if err := collection.AddDocument(ctx, doc); err != nil {
				log.Error(err.Error())
				continue
			}

			count++
		}

		log.Info("file ingested")
	}

	log.Info("ingestion done", zap.Int("documents", count))
	return nil
}

// splitPassages cuts a file into blank-line separated passages.
func splitPassages(text string) []string {
	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")

	passages := make([]string, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		passages = append(passages, block)
	}

	return passages
}

func documentID(passage string) string {
	hash := sha256.Sum256([]byte(passage))
	return "passage_" + hex.EncodeToString(hash[:12])
}
