// Command ragd runs the retrieval-augmented generation service and its
// companion ingestion and query tools.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teilomillet/ragd"
	"github.com/teilomillet/ragd/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:           "ragd",
		Short:         "Document ingestion and retrieval-augmented question answering",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newIngestCmd(), newQueryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and connects the store and provider.
// Callers own closing both.
func bootstrap(ctx context.Context) (config.Config, ragd.VectorStore, ragd.Provider, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	ragd.SetLogLevel(cfg.LogLevel)

	store, err := ragd.NewVectorStore(cfg.StoreConfig())
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if err := store.Connect(ctx); err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("connect vector store: %w", err)
	}

	provider, err := ragd.NewProvider("openai", cfg.ProviderConfig())
	if err != nil {
		store.Close()
		return config.Config{}, nil, nil, err
	}
	return cfg, store, provider, nil
}
