package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arisefit/arise/arise/database/models"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Migrator imports legacy Mongoose fitness data into Postgres, either from
// mongodump BSON files in a data directory or directly from a live MongoDB.
type Migrator struct {
	pgDB       *bun.DB
	dataDir    string
	usersPath  string
	questsPath string
	batchSize  int
	// Statistics tracking
	stats MigrationStats
	// Optional direct Mongo access
	mongoDB *mongo.Database
	// Tuning
	sleepBetween time.Duration
	insertSingle bool
	// Mongo collection names (overrideable)
	collNames map[string]string
	// Optional: use pgx CopyFrom for fastest bulk inserts
	useCopy bool
	pool    *pgxpool.Pool
}

func NewMigrator(pgDB *bun.DB, dataDir string) *Migrator {
	return &Migrator{
		pgDB:       pgDB,
		dataDir:    dataDir,
		usersPath:  filepath.Join(dataDir, "users.bson"),
		questsPath: filepath.Join(dataDir, "userquests.bson"),
		batchSize:  1000,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
		collNames: map[string]string{
			"users":       "users",
			"userquests":  "userquests",
			"workoutlogs": "workoutlogs",
		},
	}
}

// SetBatchSize overrides the default batch size for inserts (useful for poolers/timeouts)
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// SetSleepBetween sets an optional sleep between batch inserts (milliseconds)
func (m *Migrator) SetSleepBetween(ms int) {
	if ms > 0 {
		m.sleepBetween = time.Duration(ms) * time.Millisecond
	}
}

// SetInsertMode sets insert mode: "batch" (default) or "single"
func (m *Migrator) SetInsertMode(mode string) {
	m.insertSingle = mode == "single"
}

// SetUseCopy enables COPY FROM mode using pgx (fast path)
func (m *Migrator) SetUseCopy(v bool) { m.useCopy = v }

// UsePool sets the pgx pool for COPY operations
func (m *Migrator) UsePool(pool *pgxpool.Pool) { m.pool = pool }

// UseMongo enables direct-from-Mongo migration mode
func (m *Migrator) UseMongo(client *mongo.Client, dbName string) {
	if client != nil && dbName != "" {
		m.mongoDB = client.Database(dbName)
	}
}

// SetMongoCollectionName overrides the collection name for a given kind
// (e.g., "users", "userquests")
func (m *Migrator) SetMongoCollectionName(kind, name string) {
	if m.collNames == nil {
		m.collNames = map[string]string{}
	}
	if kind != "" && name != "" {
		m.collNames[kind] = name
	}
}

func (m *Migrator) getColl(kind, defaultName string) *mongo.Collection {
	if m.mongoDB == nil {
		return nil
	}
	name := defaultName
	if v, ok := m.collNames[kind]; ok && v != "" {
		name = v
	}
	return m.mongoDB.Collection(name)
}

func (m *Migrator) MigrateAll(ctx context.Context) error {
	logProgress("Starting BSON migration")
	logProgress(fmt.Sprintf("Data directory: %s", m.dataDir))

	if m.stats.Tables == nil {
		m.stats.Tables = make(map[string]*TableStats)
	}
	m.stats.StartTime = time.Now()

	// Users must land before quest instances reference them
	migrationSteps := []struct {
		name     string
		fileName string
		migrate  func(context.Context) error
	}{
		{"users", "users.bson", m.MigrateUsers},
		{"user_quests", "userquests.bson", m.MigrateUserQuests},
		{"workout_logs", "workoutlogs.bson", m.MigrateWorkoutLogs},
	}

	for _, step := range migrationSteps {
		logProgress(fmt.Sprintf("Starting migration step: %s", step.name))

		if err := step.migrate(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", step.name, err)
		}

		logProgress(fmt.Sprintf("Completed migration step: %s", step.name))
	}

	m.stats.EndTime = time.Now()
	if err := m.generateMigrationReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	logProgress("Migration completed successfully!")
	m.logFinalStats()
	return nil
}

// MigrateAllFromMongo migrates data directly from a live MongoDB database
func (m *Migrator) MigrateAllFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return fmt.Errorf("mongoDB not configured; call UseMongo first")
	}

	logProgress("Starting direct MongoDB migration")

	if m.stats.Tables == nil {
		m.stats.Tables = make(map[string]*TableStats)
	}
	m.stats.StartTime = time.Now()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users_mongo", m.MigrateUsersFromMongo},
		{"user_quests_mongo", m.MigrateUserQuestsFromMongo},
		{"workout_logs_mongo", m.MigrateWorkoutLogsFromMongo},
	}

	for _, s := range steps {
		logProgress(fmt.Sprintf("Starting migration step: %s", s.name))
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", s.name, err)
		}
		logProgress(fmt.Sprintf("Completed migration step: %s", s.name))
	}

	m.stats.EndTime = time.Now()
	if err := m.generateMigrationReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	logProgress("Direct Mongo migration completed successfully!")
	m.logFinalStats()
	return nil
}

// MigrateUsers migrates users from the BSON dump
func (m *Migrator) MigrateUsers(ctx context.Context) error {
	logProgress(fmt.Sprintf("Starting user migration from %s", m.usersPath))
	m.initTableStats("user_progression")

	var users []MongoUser

	processDoc := func(docBytes []byte) error {
		var mu MongoUser
		if err := bson.Unmarshal(docBytes, &mu); err != nil {
			slog.Error("Failed to decode user BSON", "error", err)
			return nil // Skip invalid documents
		}
		users = append(users, mu)
		return nil
	}

	if err := m.processBSONFile(ctx, m.usersPath, processDoc); err != nil {
		return err
	}

	return m.processUsers(ctx, users)
}

// MigrateUsersFromMongo migrates users from live Mongo
func (m *Migrator) MigrateUsersFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return nil
	}
	m.initTableStats("user_progression")

	col := m.getColl("users", "users")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query users: %w", err)
	}
	defer cur.Close(ctx)

	var users []MongoUser
	for cur.Next(ctx) {
		var mu MongoUser
		if err := cur.Decode(&mu); err == nil {
			users = append(users, mu)
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return m.processUsers(ctx, users)
}

func (m *Migrator) processUsers(ctx context.Context, mongoUsers []MongoUser) error {
	var batch []*models.UserProgression

	for _, mu := range mongoUsers {
		m.recordProcessed("user_progression")

		if mu.UserID == "" {
			m.recordSkipped("user_progression", "missing userId", mu.ID.Hex())
			continue
		}

		batch = append(batch, m.convertUser(mu))

		if len(batch) >= m.batchSize {
			if err := m.batchInsertProgression(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			if m.sleepBetween > 0 {
				time.Sleep(m.sleepBetween)
			}
		}
	}

	if len(batch) > 0 {
		if err := m.batchInsertProgression(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// MigrateUserQuests migrates quest instances from the BSON dump
func (m *Migrator) MigrateUserQuests(ctx context.Context) error {
	logProgress(fmt.Sprintf("Starting user quest migration from %s", m.questsPath))
	m.initTableStats("quest_instances")

	var quests []MongoUserQuest

	processDoc := func(docBytes []byte) error {
		var mq MongoUserQuest
		if err := bson.Unmarshal(docBytes, &mq); err != nil {
			slog.Error("Failed to decode user quest BSON", "error", err)
			return nil
		}
		quests = append(quests, mq)
		return nil
	}

	if err := m.processBSONFile(ctx, m.questsPath, processDoc); err != nil {
		return err
	}

	return m.processUserQuests(ctx, quests)
}

// MigrateUserQuestsFromMongo migrates quest instances from live Mongo
func (m *Migrator) MigrateUserQuestsFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return nil
	}
	m.initTableStats("quest_instances")

	col := m.getColl("userquests", "userquests")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		logProgress("userquests collection not found or query failed; skipping")
		return nil
	}
	defer cur.Close(ctx)

	var quests []MongoUserQuest
	for cur.Next(ctx) {
		var mq MongoUserQuest
		if err := cur.Decode(&mq); err == nil {
			quests = append(quests, mq)
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return m.processUserQuests(ctx, quests)
}

func (m *Migrator) processUserQuests(ctx context.Context, mongoQuests []MongoUserQuest) error {
	var batch []*models.QuestInstance

	for _, mq := range mongoQuests {
		m.recordProcessed("quest_instances")

		inst := m.convertUserQuest(mq)
		if inst == nil {
			m.recordSkipped("quest_instances", "missing keys or invalid target", mq.ID.Hex())
			continue
		}

		batch = append(batch, inst)

		if len(batch) >= m.batchSize {
			if err := m.batchInsertInstances(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			if m.sleepBetween > 0 {
				time.Sleep(m.sleepBetween)
			}
		}
	}

	if len(batch) > 0 {
		if err := m.batchInsertInstances(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// MigrateWorkoutLogs backfills last_active_at from raw workout records for
// users whose legacy streak subdocument predates the lastActiveAt field
func (m *Migrator) MigrateWorkoutLogs(ctx context.Context) error {
	filePath := filepath.Join(m.dataDir, "workoutlogs.bson")
	m.initTableStats("workout_backfill")

	latest := make(map[string]time.Time)

	processDoc := func(docBytes []byte) error {
		var wl MongoWorkoutLog
		if err := bson.Unmarshal(docBytes, &wl); err != nil {
			return nil
		}
		m.recordProcessed("workout_backfill")
		if wl.UserID == "" || wl.LoggedAt.IsZero() {
			return nil
		}
		if wl.LoggedAt.After(latest[wl.UserID]) {
			latest[wl.UserID] = wl.LoggedAt
		}
		return nil
	}

	if err := m.processBSONFile(ctx, filePath, processDoc); err != nil {
		return err
	}

	return m.applyActivityBackfill(ctx, latest)
}

// MigrateWorkoutLogsFromMongo backfills last_active_at from live Mongo
func (m *Migrator) MigrateWorkoutLogsFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return nil
	}
	m.initTableStats("workout_backfill")

	col := m.getColl("workoutlogs", "workoutlogs")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		logProgress("workoutlogs collection not found or query failed; skipping")
		return nil
	}
	defer cur.Close(ctx)

	latest := make(map[string]time.Time)
	for cur.Next(ctx) {
		var wl MongoWorkoutLog
		if err := cur.Decode(&wl); err != nil {
			continue
		}
		m.recordProcessed("workout_backfill")
		if wl.UserID == "" || wl.LoggedAt.IsZero() {
			continue
		}
		if wl.LoggedAt.After(latest[wl.UserID]) {
			latest[wl.UserID] = wl.LoggedAt
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}

	return m.applyActivityBackfill(ctx, latest)
}

func (m *Migrator) applyActivityBackfill(ctx context.Context, latest map[string]time.Time) error {
	updated := 0
	for userID, loggedAt := range latest {
		res, err := m.pgDB.NewUpdate().
			Model((*models.UserProgression)(nil)).
			Set("last_active_at = ?", loggedAt).
			Set("updated_at = ?", time.Now()).
			Where("user_id = ?", userID).
			Where("(last_active_at IS NULL OR last_active_at < ?)", loggedAt).
			Exec(ctx)
		if err != nil {
			m.recordError("workout_backfill", err.Error(), userID)
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			updated++
			m.recordSuccessful("workout_backfill")
		}
	}
	logProgress(fmt.Sprintf("Backfilled last_active_at for %d users", updated))
	return nil
}

func (m *Migrator) batchInsertProgression(ctx context.Context, users []*models.UserProgression) error {
	startTime := time.Now()
	slog.Info("Starting batch insert of user progression", "count", len(users))

	if m.insertSingle {
		for _, user := range users {
			if err := m.upsertSingleProgression(ctx, user); err != nil {
				m.recordError("user_progression", err.Error(), user.UserID)
				continue
			}
			m.recordSuccessful("user_progression")
		}
		return nil
	}

	_, err := m.pgDB.NewInsert().
		Model(&users).
		On("CONFLICT (user_id) DO UPDATE").
		Set("xp = EXCLUDED.xp").
		Set("streak = EXCLUDED.streak").
		Set("last_active_at = EXCLUDED.last_active_at").
		Set("grace_used_this_week = EXCLUDED.grace_used_this_week").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		// Retry row by row so one bad record doesn't sink the batch
		slog.Warn("Batch insert failed, retrying individually", "error", err)
		for _, user := range users {
			if singleErr := m.upsertSingleProgression(ctx, user); singleErr != nil {
				slog.Error("Failed to insert user individually",
					"user_id", user.UserID, "error", singleErr)
				m.recordError("user_progression", singleErr.Error(), user.UserID)
				continue
			}
			m.recordSuccessful("user_progression")
		}
		return nil
	}

	for range users {
		m.recordSuccessful("user_progression")
	}
	slog.Info("Batch insert of user progression completed",
		"count", len(users),
		"duration", time.Since(startTime))
	return nil
}

func (m *Migrator) upsertSingleProgression(ctx context.Context, user *models.UserProgression) error {
	_, err := m.pgDB.NewInsert().
		Model(user).
		On("CONFLICT (user_id) DO UPDATE").
		Set("xp = EXCLUDED.xp").
		Set("streak = EXCLUDED.streak").
		Set("last_active_at = EXCLUDED.last_active_at").
		Set("grace_used_this_week = EXCLUDED.grace_used_this_week").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (m *Migrator) batchInsertInstances(ctx context.Context, instances []*models.QuestInstance) error {
	startTime := time.Now()
	mode := "batch"
	if m.useCopy && m.pool != nil {
		mode = "copy"
	}
	slog.Info("Starting batch insert of quest instances", "count", len(instances), "mode", mode)

	if m.useCopy && m.pool != nil {
		if err := m.copyInsertInstances(ctx, instances); err == nil {
			for range instances {
				m.recordSuccessful("quest_instances")
			}
			slog.Info("Quest instances COPY completed", "count", len(instances), "took", time.Since(startTime))
			return nil
		} else {
			slog.Warn("Quest instances COPY path failed; falling back to batch insert", "error", err)
		}
	}

	_, err := m.pgDB.NewInsert().
		Model(&instances).
		Exec(ctx)
	if err != nil {
		slog.Warn("Batch insert failed, retrying individually", "error", err)
		for _, inst := range instances {
			if _, singleErr := m.pgDB.NewInsert().Model(inst).Exec(ctx); singleErr != nil {
				m.recordError("quest_instances", singleErr.Error(), inst.QuestID)
				continue
			}
			m.recordSuccessful("quest_instances")
		}
		return nil
	}

	for range instances {
		m.recordSuccessful("quest_instances")
	}
	slog.Info("Batch insert of quest instances completed",
		"count", len(instances),
		"duration", time.Since(startTime))
	return nil
}

func (m *Migrator) copyInsertInstances(ctx context.Context, rows []*models.QuestInstance) error {
	if m.pool == nil {
		return fmt.Errorf("pgx pool not configured for COPY")
	}
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{
			r.UserID,
			r.QuestID,
			r.Scope,
			r.Title,
			r.Description,
			r.Icon,
			r.Target,
			r.Progress,
			r.XPReward,
			r.Completed,
			r.CompletedAt,
			r.ExpiresAt,
			r.CreatedAt,
			r.UpdatedAt,
		})
	}

	columns := []string{
		"user_id", "quest_id", "scope", "title", "description", "icon",
		"target", "progress", "xp_reward", "completed", "completed_at",
		"expires_at", "created_at", "updated_at",
	}

	_, err = conn.Conn().CopyFrom(ctx, pgx.Identifier{"quest_instances"}, columns, pgx.CopyFromRows(data))
	if err != nil {
		return fmt.Errorf("copy from failed: %w", err)
	}
	return nil
}

func logProgress(message string) {
	slog.Info(message, "service", "Arise Migration")
}

// processBSONFile walks a mongodump BSON file document by document. Each
// document is framed by a little-endian int32 length that includes itself.
func (m *Migrator) processBSONFile(ctx context.Context, filePath string, processDoc func([]byte) error) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		logProgress(fmt.Sprintf("BSON file not found, skipping: %s", filePath))
		return nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open BSON file %s: %w", filePath, err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}
	fileSize := fileInfo.Size()
	logProgress(fmt.Sprintf("Processing BSON file: %s (size: %d bytes)", filePath, fileSize))

	if fileSize == 0 {
		logProgress(fmt.Sprintf("File is empty, skipping: %s", filePath))
		return nil
	}

	reader := bufio.NewReader(file)
	docCount := 0
	bytesRead := int64(0)

	for bytesRead < fileSize {
		lengthBytes := make([]byte, 4)
		n, err := io.ReadFull(reader, lengthBytes)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read document length at byte %d: %w", bytesRead, err)
		}
		bytesRead += int64(n)

		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 4 || length > 16*1024*1024 {
			return fmt.Errorf("invalid document length: %d at byte position %d", length, bytesRead-4)
		}

		docBytes := make([]byte, length-4)
		n, err = io.ReadFull(reader, docBytes)
		if err != nil {
			return fmt.Errorf("failed to read document bytes at byte %d: %w", bytesRead, err)
		}
		bytesRead += int64(n)

		fullDocBytes := append(lengthBytes, docBytes...)

		if err := processDoc(fullDocBytes); err != nil {
			logProgress(fmt.Sprintf("Warning: failed to process document %d at byte %d: %v", docCount+1, bytesRead-int64(length), err))
			continue
		}
		docCount++

		if docCount%1000 == 0 {
			logProgress(fmt.Sprintf("Processed %d documents from %s", docCount, filePath))
		}
	}

	logProgress(fmt.Sprintf("Completed processing %d documents from %s", docCount, filePath))
	return nil
}

func (m *Migrator) generateMigrationReport() error {
	timestamp := time.Now().Format("20060102_150405")
	reportFile := filepath.Join(".", fmt.Sprintf("migration_report_%s.json", timestamp))

	file, err := os.Create(reportFile)
	if err != nil {
		return fmt.Errorf("failed to create migration report file: %w", err)
	}
	defer file.Close()

	m.stats.TotalProcessed = 0
	m.stats.TotalSkipped = 0
	m.stats.TotalErrors = 0

	for _, tableStats := range m.stats.Tables {
		m.stats.TotalProcessed += tableStats.Processed
		m.stats.TotalSkipped += tableStats.Skipped
		m.stats.TotalErrors += tableStats.Errors
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m.stats); err != nil {
		return fmt.Errorf("failed to write migration report: %w", err)
	}

	slog.Info("Migration report generated", "file", reportFile)
	return nil
}

// logFinalStats logs a summary of migration statistics
func (m *Migrator) logFinalStats() {
	duration := m.stats.EndTime.Sub(m.stats.StartTime)

	slog.Info("Migration completed",
		"duration", duration,
		"total_processed", m.stats.TotalProcessed,
		"total_skipped", m.stats.TotalSkipped,
		"total_errors", m.stats.TotalErrors)

	for tableName, stats := range m.stats.Tables {
		slog.Info("Table migration stats",
			"table", tableName,
			"processed", stats.Processed,
			"successful", stats.Successful,
			"skipped", stats.Skipped,
			"errors", stats.Errors)
	}
}

// Helper methods for statistics tracking

func (m *Migrator) initTableStats(tableName string) {
	if m.stats.Tables == nil {
		m.stats.Tables = make(map[string]*TableStats)
	}
	m.stats.Tables[tableName] = &TableStats{
		TableName:      tableName,
		SkippedRecords: []SkippedRecord{},
		ErrorRecords:   []ErrorRecord{},
	}
}

func (m *Migrator) recordProcessed(tableName string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Processed++
	}
}

func (m *Migrator) recordSuccessful(tableName string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Successful++
	}
}

func (m *Migrator) recordSkipped(tableName, reason, data string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Skipped++
		stats.SkippedRecords = append(stats.SkippedRecords, SkippedRecord{
			Reason:    reason,
			Data:      data,
			Timestamp: time.Now(),
		})
	}
}

func (m *Migrator) recordError(tableName, errorMsg, data string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Errors++
		stats.ErrorRecords = append(stats.ErrorRecords, ErrorRecord{
			Error:     errorMsg,
			Data:      data,
			Timestamp: time.Now(),
		})
	}
}
