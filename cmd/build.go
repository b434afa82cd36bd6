package cmd

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/sharevia/snapshotd/internal/archive/gcs"
	"github.com/sharevia/snapshotd/internal/archive/local"
	"github.com/sharevia/snapshotd/internal/bookmarks"
	"github.com/sharevia/snapshotd/internal/config"
	eventsmemory "github.com/sharevia/snapshotd/internal/events/memory"
	eventspubsub "github.com/sharevia/snapshotd/internal/events/pubsub"
	"github.com/sharevia/snapshotd/internal/poller"
	"github.com/sharevia/snapshotd/internal/processor"
	"github.com/sharevia/snapshotd/internal/provider/brightdata"
	"github.com/sharevia/snapshotd/internal/snapshot"
)

// buildPoller assembles the pipeline from configuration: provider client,
// record store, optional archiver and publisher, processor, poll loop. The
// returned cleanup releases held connections.
func buildPoller(ctx context.Context, cfg config.Config, logger *zap.Logger) (*poller.Poller, func(), error) {
	provider, err := brightdata.New(brightdata.Config{
		BaseURL: cfg.Provider.BaseURL,
		Token:   cfg.Provider.Token,
		Timeout: cfg.ProviderTimeout(),
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init provider client: %w", err)
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	store, err := buildStore(ctx, cfg, logger, &cleanups)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	archiver, err := buildArchiver(ctx, cfg, &cleanups)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	publisher, err := buildPublisher(ctx, cfg, logger, &cleanups)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	proc := processor.New(store, archiver, publisher, processor.Config{
		EventTopic:    cfg.Events.TopicID,
		ArchivePrefix: cfg.Archive.Prefix,
	}, logger)

	p := poller.New(provider, proc, poller.Config{
		Interval:    cfg.PollInterval(),
		Concurrency: cfg.Poll.Concurrency,
	}, logger)

	return p, cleanup, nil
}

func buildStore(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	cleanups *[]func(),
) (snapshot.Store, error) {
	switch cfg.Store.Provider {
	case "postgrest":
		store, err := bookmarks.NewPostgRESTStore(bookmarks.PostgRESTConfig{
			ProjectRef:     cfg.Store.PostgREST.ProjectRef,
			ServiceRoleKey: cfg.Store.PostgREST.ServiceRoleKey,
			Table:          cfg.Store.PostgREST.Table,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init postgrest store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := bookmarks.NewPostgresStore(ctx, bookmarks.PostgresConfig{
			DSN:      cfg.Store.Postgres.DSN,
			Table:    cfg.Store.Postgres.Table,
			MaxConns: cfg.Store.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		*cleanups = append(*cleanups, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store provider: %s", cfg.Store.Provider)
	}
}

func buildArchiver(ctx context.Context, cfg config.Config, cleanups *[]func()) (snapshot.Archiver, error) {
	switch cfg.Archive.Provider {
	case "noop":
		return nil, nil
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		*cleanups = append(*cleanups, func() { _ = client.Close() })
		archiver, err := gcs.New(client, gcs.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return archiver, nil
	case "local":
		archiver, err := local.New(local.Config{BaseDir: cfg.Archive.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return archiver, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Archive.Provider)
	}
}

func buildPublisher(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	cleanups *[]func(),
) (snapshot.Publisher, error) {
	switch cfg.Events.Provider {
	case "noop":
		return nil, nil
	case "memory":
		return eventsmemory.New(), nil
	case "pubsub":
		pub, err := eventspubsub.New(ctx, eventspubsub.Config{
			ProjectID: cfg.Events.ProjectID,
			TopicID:   cfg.Events.TopicID,
		})
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		*cleanups = append(*cleanups, func() {
			if cerr := pub.Close(); cerr != nil {
				logger.Warn("close pubsub publisher", zap.Error(cerr))
			}
		})
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown events provider: %s", cfg.Events.Provider)
	}
}
