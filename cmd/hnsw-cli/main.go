// Command hnsw-cli is a small command-line harness for building and
// querying an HNSW index from the shell. It is a consumer of the core
// library, not part of it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	hnsw "github.com/annstore/hnswkv"
	"github.com/annstore/hnswkv/pkg/storage"
)

var (
	backend       string
	dbPath        string
	chainEndpoint string
)

var rootCmd = &cobra.Command{
	Use:   "hnsw-cli",
	Short: "CLI tool for an HNSW approximate nearest-neighbor index",
	Long:  `A command-line interface for building and querying a vector index backed by a pluggable storage layer.`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the storage backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStorage()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := context.Background()
		size, err := store.GetDataSize(ctx)
		if err != nil {
			return fmt.Errorf("failed to read data size: %w", err)
		}

		fmt.Printf("initialized %q backend (%d existing points)\n", backend, size)
		return nil
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert a vector into the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStr, _ := cmd.Flags().GetString("vector")
		metadataStr, _ := cmd.Flags().GetString("metadata")
		if vectorStr == "" {
			return fmt.Errorf("--vector is required")
		}

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		var metadata map[string]string
		if metadataStr != "" {
			metadata = make(map[string]string)
			if err := json.Unmarshal([]byte(metadataStr), &metadata); err != nil {
				return fmt.Errorf("invalid metadata JSON: %w", err)
			}
		}

		store, closeStore, err := openStorage()
		if err != nil {
			return err
		}
		defer closeStore()

		idx, err := hnsw.New(store, hnsw.DefaultConfig())
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}

		ctx := context.Background()
		id, err := idx.Insert(ctx, vector, metadata)
		if err != nil {
			return fmt.Errorf("failed to insert: %w", err)
		}

		fmt.Printf("inserted point id=%d\n", id)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the index for the K nearest vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStr, _ := cmd.Flags().GetString("vector")
		k, _ := cmd.Flags().GetInt("k")
		ef, _ := cmd.Flags().GetInt("ef")
		if vectorStr == "" {
			return fmt.Errorf("--vector is required")
		}

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		store, closeStore, err := openStorage()
		if err != nil {
			return err
		}
		defer closeStore()

		idx, err := hnsw.New(store, hnsw.DefaultConfig())
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}

		ctx := context.Background()
		results, err := idx.KnnSearch(ctx, vector, k, ef)
		if err != nil {
			return fmt.Errorf("failed to search: %w", err)
		}

		for _, r := range results {
			fmt.Printf("%d\t%.6f\n", r.ID, r.Distance)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStorage()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := context.Background()
		size, err := store.GetDataSize(ctx)
		if err != nil {
			return fmt.Errorf("failed to read data size: %w", err)
		}
		layers, err := store.GetNumLayers(ctx)
		if err != nil {
			return fmt.Errorf("failed to read num layers: %w", err)
		}

		fmt.Printf("points: %d\nlayers: %d\n", size, layers)
		return nil
	},
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vector := make([]float32, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector format: %w", err)
		}
		vector = append(vector, float32(val))
	}
	return vector, nil
}

// openStorage resolves --backend into a concrete storage.Storage. The
// memory backend is process-lifetime only and exists for quick
// experimentation; sqlite persists to --db-path.
func openStorage() (storage.Storage, func(), error) {
	switch backend {
	case "", "memory":
		s := storage.NewMemoryStorage()
		return s, func() { s.Close() }, nil
	case "sqlite":
		path := dbPath
		if path == "" {
			path = "hnswkv.db"
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve db path: %w", err)
		}
		s, err := storage.OpenSQLiteStorage(context.Background(), abs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, func() { s.Close() }, nil
	case "redis":
		s, err := storage.OpenRedisStorage(context.Background(), storage.DefaultRedisConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		return s, func() { s.Close() }, nil
	case "chain":
		endpoint := chainEndpoint
		if endpoint == "" {
			return nil, nil, fmt.Errorf("--chain-endpoint is required for the chain backend")
		}
		s, err := storage.OpenChainStorage(endpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open chain storage: %w", err)
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want memory, sqlite, redis, or chain)", backend)
	}
}

func main() {
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "memory", "storage backend: memory, sqlite, redis, or chain")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "sqlite database file path (sqlite backend only)")
	rootCmd.PersistentFlags().StringVar(&chainEndpoint, "chain-endpoint", "", "contract gateway ws:// URL (chain backend only)")

	insertCmd.Flags().String("vector", "", "comma-separated vector components")
	insertCmd.Flags().String("metadata", "", "JSON object to store alongside the vector")

	searchCmd.Flags().String("vector", "", "comma-separated query vector components")
	searchCmd.Flags().Int("k", 10, "number of nearest neighbors to return")
	searchCmd.Flags().Int("ef", 50, "candidate list size for the query")

	rootCmd.AddCommand(initCmd, insertCmd, searchCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
