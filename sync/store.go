package sync

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"teamtask/models"
)

// Store is the authoritative persistence layer for team buckets. A missing
// row reads as empty arrays, never as an error.
type Store interface {
	// ReadBucket returns the stored value for one field, or "[]" when the
	// team has no row yet.
	ReadBucket(teamID uint, field Field) (models.JSONArray, error)

	// ReadAll returns the full row for a team, with every bucket defaulted
	// to "[]" when the row does not exist.
	ReadAll(teamID uint) (*models.TeamData, error)

	// UpsertField atomically replaces one field of the team's row, creating
	// the row with all other buckets empty if it does not exist. Concurrent
	// upserts to different fields of the same team must not clobber each
	// other; same-field races are last-write-wins.
	UpsertField(teamID uint, field Field, payload models.JSONArray) error
}

// GormStore implements Store on the team_data table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ReadBucket(teamID uint, field Field) (models.JSONArray, error) {
	var row models.TeamData
	err := s.db.Where("team_id = ?", teamID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.EmptyArray, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bucket %s for team %d: %w", field, teamID, err)
	}

	value, ok := row.Bucket(field.Column())
	if !ok {
		return nil, fmt.Errorf("no column for field %s", field)
	}
	if len(value) == 0 {
		return models.EmptyArray, nil
	}
	return value, nil
}

func (s *GormStore) ReadAll(teamID uint) (*models.TeamData, error) {
	var row models.TeamData
	err := s.db.Where("team_id = ?", teamID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return emptyRow(teamID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read team data for team %d: %w", teamID, err)
	}

	// Normalize NULLs from pre-migration rows to empty arrays.
	for _, f := range Fields() {
		if v, _ := row.Bucket(f.Column()); len(v) == 0 {
			row.SetBucket(f.Column(), models.EmptyArray)
		}
	}
	return &row, nil
}

func (s *GormStore) UpsertField(teamID uint, field Field, payload models.JSONArray) error {
	row := emptyRow(teamID)
	row.SetBucket(field.Column(), payload)

	// Single-statement upsert: on conflict only the target column is
	// assigned, so writes to different fields of the same team never
	// clobber each other.
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}},
		DoUpdates: clause.AssignmentColumns([]string{field.Column(), "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert %s for team %d: %w", field, teamID, err)
	}
	return nil
}

func emptyRow(teamID uint) *models.TeamData {
	row := &models.TeamData{TeamID: teamID}
	for _, f := range Fields() {
		row.SetBucket(f.Column(), models.EmptyArray)
	}
	return row
}
