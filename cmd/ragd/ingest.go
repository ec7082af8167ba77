package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teilomillet/ragd"
	"github.com/teilomillet/ragd/internal/config"
)

func newIngestCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest <file-or-text>",
		Short: "Ingest a document into the vector store",
		Long: "Ingest a document into the vector store. The argument is a file path " +
			"when it names an existing file, raw text otherwise.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, store, provider, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			defer provider.Close()

			ingestor, err := buildIngestor(cfg, store, provider)
			if err != nil {
				return err
			}

			var result ragd.IngestResult
			if info, statErr := os.Stat(args[0]); statErr == nil && !info.IsDir() {
				result, err = ingestor.IngestFile(ctx, args[0], source)
			} else {
				result, err = ingestor.IngestText(ctx, args[0], source)
			}
			if err != nil {
				return err
			}

			fmt.Printf("Ingested %q: %d/%d chunks stored in collection %q\n",
				result.Source, result.ChunksStored, result.TotalChunks, result.Collection)
			if result.ChunksFailed > 0 {
				fmt.Printf("Warning: %d chunks failed to store\n", result.ChunksFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source label stored with each chunk (defaults to the file name)")
	return cmd
}

func buildIngestor(cfg config.Config, store ragd.VectorStore, provider ragd.Provider) (*ragd.Ingestor, error) {
	embedder := ragd.NewEmbeddingService(provider, ragd.WithBatchSize(cfg.EmbedBatchSize))
	counter, err := ragd.NewModelTokenCounter(cfg.EmbedModel)
	if err != nil {
		return nil, err
	}
	chunker, err := ragd.NewChunker(
		ragd.ChunkSize(cfg.ChunkTokens),
		ragd.ChunkOverlap(cfg.ChunkOverlap),
		ragd.WithTokenCounter(counter),
	)
	if err != nil {
		return nil, err
	}
	return ragd.NewIngestor(store, embedder,
		ragd.IngestorCollection(cfg.Collection),
		ragd.IngestorModel(cfg.EmbedModel),
		ragd.IngestorDimension(cfg.EmbedDim),
		ragd.IngestorChunker(chunker),
	)
}
