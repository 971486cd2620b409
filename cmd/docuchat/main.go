package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/docuchat/docuchat/config"
	"github.com/docuchat/docuchat/internal/docs"
	"github.com/docuchat/docuchat/internal/index"
	srv "github.com/docuchat/docuchat/internal/server"
	"github.com/docuchat/docuchat/internal/store"
	"github.com/docuchat/docuchat/provider"
)

func main() {
	var root = &cobra.Command{Use: "docuchat"}
	var cfgPath string
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return srv.Run(cfg)
		},
	}

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return srv.Migrate(migDir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	var ingest = &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a document from disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withManager(cfgPath, func(ctx context.Context, m *docs.Manager) error {
				id, err := m.Ingest(ctx, args[0], data)
				if err != nil {
					return err
				}
				fmt.Printf("ingested %s as document %d\n", args[0], id)
				return nil
			})
		},
	}

	var ingestURL = &cobra.Command{
		Use:   "ingest-url [url]",
		Short: "Fetch a web page and ingest its readable content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cfgPath, func(ctx context.Context, m *docs.Manager) error {
				id, err := m.IngestURL(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("ingested %s as document %d\n", args[0], id)
				return nil
			})
		},
	}

	var docsCmd = &cobra.Command{Use: "docs", Short: "Manage ingested documents"}

	var docsList = &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cfgPath, func(ctx context.Context, m *docs.Manager) error {
				infos, err := m.List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tFILENAME\tUPLOADED")
				for _, d := range infos {
					fmt.Fprintf(w, "%d\t%s\t%s\n", d.ID, d.Filename, d.UploadTimestamp.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			})
		},
	}

	var docsRm = &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a document and its indexed chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid document id: %s", args[0])
			}
			return withManager(cfgPath, func(ctx context.Context, m *docs.Manager) error {
				if err := m.Remove(ctx, id); err != nil {
					return err
				}
				fmt.Printf("removed document %d\n", id)
				return nil
			})
		},
	}

	docsCmd.AddCommand(docsList, docsRm)
	root.AddCommand(serve, migrate, ingest, ingestURL, docsCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// withManager wires a document manager against the configured store and
// index for one-off CLI operations.
func withManager(cfgPath string, fn func(context.Context, *docs.Manager) error) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	ctx := context.Background()

	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}
	defer st.DB.Close()

	var embedder index.Embedder
	if cfg.Retrieval.Embeddings {
		prov, err := provider.NewProvider(cfg.LLM.Provider)
		if err != nil {
			return err
		}
		embedder = prov
	}

	ix, err := index.Open(cfg.Retrieval.IndexPath, embedder)
	if err != nil {
		return err
	}
	defer ix.Close()

	logger := log.New(os.Stderr, "[DOCS] ", log.LstdFlags)
	m := docs.NewManager(st, ix, embedder, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap, logger)
	if _, err := m.Rebuild(ctx); err != nil {
		return err
	}
	return fn(ctx, m)
}
