package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/cli/config"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
	"github.com/plaza-hq/rostersync/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the SQL schema or the Firestore indexes of the repository",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Migrate configuration", "repository", repoCfg, "dryRun", dryRun)

			if err := repoCfg.Validate(); err != nil {
				return err
			}

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), dryRun)

			case config.BackendMemory:
				logger.Info("Nothing to migrate for the in-memory repository")
				return nil

			default:
				if dryRun {
					logger.Info("Dry run mode - schema to apply", "ddl", repoCfg.Schema())
					return nil
				}
				repo, err := repoCfg.Configure(ctx)
				if err != nil {
					return err
				}
				if err := repo.Close(); err != nil {
					return goerr.Wrap(err, "failed to close repository")
				}
				logger.Info("Schema applied successfully", "backend", repoCfg.Backend())
				return nil
			}
		},
	}
}

// defaultDatabaseID is the id Firestore gives the database of a project
const defaultDatabaseID = "(default)"

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()
	indexConfig := getIndexConfig()
	if databaseID == "" {
		databaseID = defaultDatabaseID
	}

	client, err := fireconf.New(ctx, projectID, databaseID, indexConfig, fireconf.WithLogger(logger))
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer safe.Close(ctx, client)

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		current, err := client.Import(ctx, collectionNames(indexConfig)...)
		if err != nil {
			return goerr.Wrap(err, "failed to import current index configuration")
		}
		diff, err := client.DiffConfigs(current)
		if err != nil {
			return goerr.Wrap(err, "failed to compare index configuration")
		}
		logMigrationPlan(logger, diff)
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

func collectionNames(cfg *fireconf.Config) []string {
	names := make([]string, 0, len(cfg.Collections))
	for _, col := range cfg.Collections {
		names = append(names, col.Name)
	}
	return names
}

func logMigrationPlan(logger *slog.Logger, diff *fireconf.DiffResult) {
	steps := 0
	for _, col := range diff.Collections {
		for _, idx := range col.IndexesToAdd {
			steps++
			logger.Info("Migration step",
				"collection", col.Name,
				"operation", "create_index",
				"fields", indexFieldPaths(idx))
		}
		for _, idx := range col.IndexesToDelete {
			steps++
			logger.Info("Migration step",
				"collection", col.Name,
				"operation", "delete_index",
				"fields", indexFieldPaths(idx),
				"destructive", true)
		}
	}
	if steps == 0 {
		logger.Info("No changes required")
	}
}

func indexFieldPaths(idx fireconf.Index) []string {
	paths := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		paths = append(paths, f.Path)
	}
	return paths
}

// getIndexConfig returns the Firestore index configuration
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "users",
				Indexes: []fireconf.Index{
					// ListUsersByJobTitle: job_title_id ASC, id ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "job_title_id", Order: fireconf.OrderAscending},
							{Path: "id", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
