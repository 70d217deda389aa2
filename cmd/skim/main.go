package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skim-ai/cli/internal/ingest"
	"github.com/skim-ai/cli/internal/models"
	"github.com/skim-ai/cli/internal/server"
	"github.com/skim-ai/cli/internal/store"
	"github.com/skim-ai/cli/internal/tui"
	"github.com/skim-ai/cli/internal/watcher"
)

var debugFlag bool

var (
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	citationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func main() {
	root := &cobra.Command{
		Use:   "skim",
		Short: "Ingest documents and answer questions about them with citations",
	}
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	root.AddCommand(
		ingestCmd(),
		askCmd(),
		chatCmd(),
		serveCmd(),
		watchCmd(),
		modelsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func ingestCmd() *cobra.Command {
	var metaFlags []string

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest PDF or EPUB files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, debugFlag)
			if err != nil {
				return err
			}
			defer a.Close()

			extra, err := parseKeyValues(metaFlags)
			if err != nil {
				return err
			}

			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}

				if info.IsDir() {
					all, err := a.pipeline.IngestDir(ctx, path, extra)
					if err != nil {
						return err
					}
					for _, stats := range all {
						printStats(stats)
					}
					continue
				}

				stats, err := a.pipeline.IngestFile(ctx, path, extra)
				if err != nil {
					return err
				}
				printStats(stats)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&metaFlags, "meta", nil, "document metadata as key=value (repeatable)")
	return cmd
}

func askCmd() *cobra.Command {
	var filterFlags []string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question with citations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, debugFlag)
			if err != nil {
				return err
			}
			defer a.Close()

			filter, err := parseKeyValues(filterFlags)
			if err != nil {
				return err
			}

			answer, err := a.answerer.Answer(ctx, args[0], filter)
			if err != nil {
				return err
			}

			printAnswer(answer)
			saveConversation(ctx, a, args[0], answer)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&filterFlags, "filter", nil, "metadata filter as key=value (repeatable)")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), debugFlag)
			if err != nil {
				return err
			}
			defer a.Close()

			return tui.Run(func(ctx context.Context, query string) (*models.Answer, error) {
				answer, err := a.answerer.Answer(ctx, query, nil)
				if err != nil {
					return nil, err
				}
				saveConversation(ctx, a, query, answer)
				return answer, nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the answerer over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, debugFlag)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.NewServer(a.answerer, a.cfg.Server.Host, a.cfg.Server.Port, a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Stop(shutdownCtx)
			}
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the documents directory and ingest changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, debugFlag)
			if err != nil {
				return err
			}
			defer a.Close()

			w := watcher.New(
				a.cfg.Paths.DocumentsDir,
				a.cfg.Watch.Extensions,
				a.cfg.Watch.Debounce,
				func(path string) {
					if _, err := a.pipeline.IngestFile(ctx, path, nil); err != nil {
						a.logger.Error("failed to ingest file", zap.String("path", path), zap.Error(err))
					}
				},
				a.logger,
			)
			return w.Start(ctx)
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available models",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, debugFlag)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.selector.ListModels(ctx)
			if err != nil {
				return err
			}

			for _, m := range list {
				marker := "  "
				if m.Name == a.chatModel {
					marker = "* "
				}
				fmt.Printf("%s%s  %.1f GB\n", marker, m.Name, float64(m.Size)/(1024*1024*1024))
			}
			return nil
		},
	}
}

func printStats(stats *ingest.Stats) {
	if stats.Skipped {
		fmt.Printf("%s: already ingested, skipped\n", stats.DocID)
		return
	}
	fmt.Printf("%s: %d pages, %d text chunks, %d tables, %d visuals\n",
		stats.DocID, stats.Pages, stats.TextChunks, stats.TableChunks, stats.VisualChunks)
}

func printAnswer(answer *models.Answer) {
	fmt.Println(answerStyle.Render(answer.Answer))
	if len(answer.Citations) > 0 {
		fmt.Println()
		fmt.Println(citationStyle.Render("Citations:"))
		for _, c := range answer.Citations {
			line := fmt.Sprintf("  [%d] %s", c.SourceID, c.DocID)
			if c.Page > 0 {
				line += fmt.Sprintf(", Page %d", c.Page)
			}
			line += fmt.Sprintf(" (score %.3f)", c.ConfidenceScore)
			fmt.Println(citationStyle.Render(line))
		}
	}
}

// saveConversation logs the exchange; failures are not worth surfacing.
func saveConversation(ctx context.Context, a *app, question string, answer *models.Answer) {
	cited := make([]string, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		cited = append(cited, c.DocID)
	}
	err := a.db.SaveConversation(ctx, &store.Conversation{
		Question:  question,
		Answer:    answer.Answer,
		ModelName: a.chatModel,
		CitedDocs: cited,
	})
	if err != nil {
		a.logger.Warn("failed to save conversation", zap.Error(err))
	}
}

// parseKeyValues parses repeated key=value flags.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid key=value pair: %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
