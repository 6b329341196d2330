package main

import (
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fathom/ledgerdesk/internal/config"
	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/store"
	"github.com/fathom/ledgerdesk/internal/store/local"
	"github.com/fathom/ledgerdesk/internal/store/remote"
	"github.com/fathom/ledgerdesk/internal/syncer"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "ledgerdesk",
	Short: "Local-first bookkeeping with remote sync",
	Long: `LedgerDesk keeps transactions, invoices, clients, projects, and
calendar events in a local store that works fully offline, and syncs
them through a hosted document store when one is configured and
reachable.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ledgerdesk.yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "service", Title: "Service Commands:"},
	)
}

// session bundles everything a command needs to touch the stores.
type session struct {
	cfg    *config.Config
	id     identity.Identity
	sync   *syncer.Synchronizer
	local  *local.Adapter
	fileKV *local.FileKV
	remote *remote.LibsqlStore
	closer []func()
}

func (s *session) close() {
	for i := len(s.closer) - 1; i >= 0; i-- {
		s.closer[i]()
	}
}

// openSession loads config, opens the local store, and resolves the
// session identity. When no remote is configured the identity is the
// fallback without any auth attempt.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	logger := cfg.NewLogger("ledgerdesk")

	kv, cleanup, err := openKV(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		s.closer = append(s.closer, cleanup)
	}
	if fkv, ok := kv.(*local.FileKV); ok {
		s.fileKV = fkv
	}
	s.local = local.New(kv, cfg.NewLogger("local"))

	var remoteAdapter store.Adapter
	if cfg.Remote.URL != "" {
		rs, err := remote.OpenLibsql(remote.LibsqlConfig{
			ReplicaPath:  filepath.Join(cfg.DataDir, "replica.db"),
			PrimaryURL:   cfg.Remote.URL,
			AuthToken:    cfg.Remote.AuthToken,
			SyncInterval: cfg.Remote.SyncInterval,
			Logger:       cfg.NewLogger("libsql"),
		})
		if err != nil {
			// Remote trouble never blocks the session.
			logger.Printf("Remote store unavailable, running local-only: %v", err)
		} else {
			s.remote = rs
			s.closer = append(s.closer, func() { _ = rs.Close() })
			remoteAdapter = remote.New(rs, cfg.NewLogger("remote"))
		}
	}

	if s.remote != nil {
		probe := remote.NewAuthProbe(s.remote, filepath.Join(cfg.DataDir, "device_id"))
		resolver := identity.NewResolver(probe, identity.DefaultAuthTimeout, cfg.NewLogger("identity"))
		s.id = resolver.Resolve(cmd.Context())
	} else {
		s.id = identity.Fallback()
	}

	s.sync = syncer.New(s.local, remoteAdapter, cfg.NewLogger("sync"))
	return s, nil
}

// openKV builds the configured key-value backend. The second return is
// an optional cleanup.
func openKV(cfg *config.Config, logger *log.Logger) (local.KV, func(), error) {
	switch cfg.LocalStore {
	case "memory":
		return local.NewMemoryKV(), nil, nil

	case "file":
		kv, err := local.NewFileKV(filepath.Join(cfg.DataDir, "store"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return kv, nil, nil

	case "sqlite":
		kv, err := local.OpenSQLiteKV(filepath.Join(cfg.DataDir, "local.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local database: %w", err)
		}
		return kv, func() { _ = kv.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown local_store %q", cfg.LocalStore)
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
