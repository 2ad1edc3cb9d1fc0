package cmd

import (
	"log/slog"

	"github.com/arisefit/arise/arise"
	"github.com/arisefit/arise/arise/database"
	"github.com/arisefit/arise/arise/migration"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	migrateConfigPath string
	migrateFromMongo  bool
	migrateDataDir    string
	migrateBatchSize  int
	migrateSleepMS    int
	migrateInsertMode string
	migrateUseCopy    bool
	migrateUsersColl  string
	migrateQuestsColl string
	migrateLogsColl   string
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "import legacy Mongoose fitness data into Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := arise.LoadConfig(migrateConfigPath)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			return err
		}

		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			return err
		}
		defer db.Close()

		if err := db.InitializeSchema(ctx); err != nil {
			slog.Error("Failed to initialize schema", "error", err)
			return err
		}

		dataDir := migrateDataDir
		if dataDir == "" {
			dataDir = cfg.Legacy.DataDir
		}

		migrator := migration.NewMigrator(db.BunDB(), dataDir)
		migrator.SetBatchSize(migrateBatchSize)
		migrator.SetSleepBetween(migrateSleepMS)
		migrator.SetInsertMode(migrateInsertMode)
		if migrateUseCopy {
			migrator.SetUseCopy(true)
			migrator.UsePool(db.GetPool())
		}

		if migrateFromMongo {
			if cfg.Legacy.MongoURI == "" {
				slog.Error("legacy.mongo_uri is required with --from-mongo")
				return cmd.Help()
			}

			client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Legacy.MongoURI))
			if err != nil {
				slog.Error("Failed to connect to MongoDB", "error", err)
				return err
			}
			defer func() {
				_ = client.Disconnect(ctx)
			}()

			migrator.UseMongo(client, cfg.Legacy.Database)
			migrator.SetMongoCollectionName("users", migrateUsersColl)
			migrator.SetMongoCollectionName("userquests", migrateQuestsColl)
			migrator.SetMongoCollectionName("workoutlogs", migrateLogsColl)
			if err := migrator.MigrateAllFromMongo(ctx); err != nil {
				slog.Error("Migration failed", "error", err)
				return err
			}
		} else {
			if err := migrator.MigrateAll(ctx); err != nil {
				slog.Error("Migration failed", "error", err)
				return err
			}
		}

		slog.Info("Migration completed successfully!")
		return nil
	},
}

func init() {
	migrateCMD.Flags().StringVar(&migrateConfigPath, "config", "config.toml", "path to config")
	migrateCMD.Flags().BoolVar(&migrateFromMongo, "from-mongo", false, "migrate directly from a live MongoDB instead of BSON dumps")
	migrateCMD.Flags().StringVar(&migrateDataDir, "data-dir", "", "directory holding mongodump BSON files (overrides config)")
	migrateCMD.Flags().IntVar(&migrateBatchSize, "batch-size", 1000, "rows per insert batch")
	migrateCMD.Flags().IntVar(&migrateSleepMS, "sleep-ms", 0, "sleep between batches in milliseconds")
	migrateCMD.Flags().StringVar(&migrateInsertMode, "insert-mode", "batch", "insert mode: batch or single")
	migrateCMD.Flags().BoolVar(&migrateUseCopy, "use-copy", false, "use pgx COPY FROM for quest instances")
	migrateCMD.Flags().StringVar(&migrateUsersColl, "users-collection", "", "override the legacy users collection name")
	migrateCMD.Flags().StringVar(&migrateQuestsColl, "quests-collection", "", "override the legacy userquests collection name")
	migrateCMD.Flags().StringVar(&migrateLogsColl, "logs-collection", "", "override the legacy workoutlogs collection name")
	rootCmd.AddCommand(migrateCMD)
}
