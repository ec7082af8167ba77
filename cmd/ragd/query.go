package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teilomillet/ragd"
)

func newQueryCmd() *cobra.Command {
	var (
		topK        int
		alpha       float64
		maxContext  int
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question grounded in ingested documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := args[0]
			ctx := cmd.Context()
			cfg, store, provider, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			defer provider.Close()

			embedder := ragd.NewEmbeddingService(provider, ragd.WithBatchSize(cfg.EmbedBatchSize))
			retriever := ragd.NewRetriever(store, embedder,
				ragd.RetrieverCollection(cfg.Collection),
				ragd.RetrieverModel(cfg.EmbedModel),
				ragd.TopK(cfg.TopK),
				ragd.Alpha(cfg.HybridAlpha),
			)
			answerer := ragd.NewAnswerer(retriever, provider,
				ragd.AnswererModel(cfg.ChatModel),
				ragd.Temperature(cfg.Temperature),
				ragd.MaxContextChunks(cfg.MaxContextChunks),
			)

			opts := ragd.AnswerOptions{TopK: topK, MaxContext: maxContext}
			if cmd.Flags().Changed("alpha") {
				opts.Alpha = &alpha
			}
			if cmd.Flags().Changed("temperature") {
				opts.Temperature = &temperature
			}

			result, err := answerer.Answer(ctx, question, opts)
			if err != nil {
				return err
			}

			printRule("INPUT QUERY:")
			fmt.Println(result.Question)
			fmt.Println()

			printRule("RETRIEVED DOCUMENTS:")
			fmt.Printf("Found %d results\n\n", len(result.Chunks))
			for i, chunk := range result.Chunks {
				fmt.Printf("Result %d (score %.3f, source %s):\n", i+1, chunk.Score, chunk.Source)
				fmt.Println(strings.Repeat("-", 40))
				fmt.Println(strings.TrimSpace(chunk.Text))
				fmt.Println()
			}

			if result.Prompt != "" {
				printRule("FULL PROMPT:")
				fmt.Println(result.Prompt)
				fmt.Println()
			}

			printRule("GENERATED ANSWER:")
			fmt.Println(strings.TrimSpace(result.Answer))
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.5, "hybrid blend: 1 is pure vector, 0 pure keyword")
	cmd.Flags().IntVar(&maxContext, "max-context", 0, "chunks included in the prompt")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.2, "completion sampling temperature")
	return cmd
}

func printRule(title string) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 80))
}
