package migration

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoStreak is the streak subdocument embedded in a legacy user. The
// legacy app tracked the grace flag under the streak rather than the user.
type MongoStreak struct {
	Count             float64   `bson:"count"`
	LastActiveAt      time.Time `bson:"lastActiveAt"`
	GraceUsedThisWeek bool      `bson:"graceUsedThisWeek"`
}

// MongoUser represents a user document from the legacy Mongoose deployment.
// Numeric fields are float64 because Mongoose persists numbers as doubles.
type MongoUser struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"userId"`
	Username  string             `bson:"username"`
	XP        float64            `bson:"xp"`
	Level     float64            `bson:"level"` // derived on the legacy side, recomputed here
	Streak    MongoStreak        `bson:"streak"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// MongoUserQuest represents an active or completed quest on the legacy side.
// The legacy app embedded the template snapshot directly on the document, the
// same shape the new quest_instances table uses.
type MongoUserQuest struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      string             `bson:"userId"`
	QuestID     string             `bson:"questId"`
	Type        string             `bson:"type"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Icon        string             `bson:"icon"`
	Target      float64            `bson:"target"`
	Progress    float64            `bson:"progress"`
	XPReward    float64            `bson:"xpReward"`
	Completed   bool               `bson:"completed"`
	CompletedAt *time.Time         `bson:"completedAt"`
	ExpiresAt   time.Time          `bson:"expiresAt"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

// MongoWorkoutLog represents a raw workout record from the legacy deployment.
// Only used to backfill lastActiveAt for users whose streak subdocument
// predates the field.
type MongoWorkoutLog struct {
	ID             primitive.ObjectID `bson:"_id"`
	UserID         string             `bson:"userId"`
	CaloriesBurned float64            `bson:"caloriesBurned"`
	LoggedAt       time.Time          `bson:"loggedAt"`
}

// MigrationStats tracks migration progress and issues
type MigrationStats struct {
	Tables         map[string]*TableStats `json:"tables"`
	StartTime      time.Time              `json:"start_time"`
	EndTime        time.Time              `json:"end_time"`
	TotalErrors    int                    `json:"total_errors"`
	TotalSkipped   int                    `json:"total_skipped"`
	TotalProcessed int                    `json:"total_processed"`
}

// TableStats tracks stats for individual tables
type TableStats struct {
	TableName      string          `json:"table_name"`
	Processed      int             `json:"processed"`
	Successful     int             `json:"successful"`
	Skipped        int             `json:"skipped"`
	Errors         int             `json:"errors"`
	SkippedRecords []SkippedRecord `json:"skipped_records"`
	ErrorRecords   []ErrorRecord   `json:"error_records"`
}

// SkippedRecord tracks why a record was skipped
type SkippedRecord struct {
	Reason    string    `json:"reason"`
	Data      string    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorRecord tracks migration errors
type ErrorRecord struct {
	Error     string    `json:"error"`
	Data      string    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
