package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"teamtask/models"
)

// BackfillWorker makes sure every team has its document row. Rows are
// normally created at registration, but teams imported or created before the
// data table existed would otherwise read as missing until their first write.
type BackfillWorker struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewBackfillWorker(db *gorm.DB, logger *log.Logger) *BackfillWorker {
	return &BackfillWorker{
		DB:     db,
		Logger: logger,
	}
}

func (bw *BackfillWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	select {
	case <-ctx.Done():
		return
	case <-time.After(10 * time.Second):
	}

	bw.Logger.Println("Backfill worker started")

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	bw.backfillMissingRows()

	for {
		select {
		case <-ctx.Done():
			bw.Logger.Println("Backfill worker shutting down...")
			return
		case <-ticker.C:
			bw.backfillMissingRows()
		}
	}
}

func (bw *BackfillWorker) backfillMissingRows() {
	var teams []models.Team
	err := bw.DB.
		Joins("LEFT JOIN team_data ON team_data.team_id = teams.id").
		Where("team_data.id IS NULL").
		Find(&teams).Error
	if err != nil {
		bw.Logger.Printf("Error finding teams without data rows: %v", err)
		return
	}

	for _, team := range teams {
		// DoNothing keeps this safe against a concurrent first write.
		err := bw.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "team_id"}},
			DoNothing: true,
		}).Create(&models.TeamData{TeamID: team.ID}).Error
		if err != nil {
			bw.Logger.Printf("Error backfilling data row for team %d: %v", team.ID, err)
			continue
		}
		bw.Logger.Printf("Backfilled data row for team %d", team.ID)
	}
}
