package models

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// JSONArray holds a raw JSON array for a jsonb column. The sync engine treats
// the value as atomic: a write replaces the whole array.
type JSONArray []byte

// EmptyArray is the default value for every bucket column.
var EmptyArray = JSONArray("[]")

func (a JSONArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return string(a), nil
}

func (a *JSONArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = JSONArray("[]")
	case []byte:
		buf := make([]byte, len(v))
		copy(buf, v)
		*a = buf
	case string:
		*a = JSONArray(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONArray", value)
	}
	return nil
}

func (a JSONArray) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return a, nil
}

func (a *JSONArray) UnmarshalJSON(data []byte) error {
	if a == nil {
		return errors.New("JSONArray: UnmarshalJSON on nil pointer")
	}
	*a = append((*a)[0:0], data...)
	return nil
}

// TeamData is the per-team document row: one jsonb column per synchronized
// bucket, exactly one row per team. Absence of the row reads as empty arrays.
type TeamData struct {
	gorm.Model
	TeamID uint `gorm:"uniqueIndex;not null" json:"team_id"`

	Tasks            JSONArray `gorm:"type:jsonb;default:'[]'" json:"tasks"`
	Projects         JSONArray `gorm:"type:jsonb;default:'[]'" json:"projects"`
	Sales            JSONArray `gorm:"type:jsonb;default:'[]'" json:"sales"`
	TeamMembers      JSONArray `gorm:"type:jsonb;default:'[]'" json:"team_members"`
	Meetings         JSONArray `gorm:"type:jsonb;default:'[]'" json:"meetings"`
	Activities       JSONArray `gorm:"type:jsonb;default:'[]'" json:"activities"`
	Documents        JSONArray `gorm:"type:jsonb;default:'[]'" json:"documents"`
	MeetingMinutes   JSONArray `gorm:"type:jsonb;default:'[]'" json:"meeting_minutes"`
	Leads            JSONArray `gorm:"type:jsonb;default:'[]'" json:"leads"`
	ServiceMaterials JSONArray `gorm:"type:jsonb;default:'[]'" json:"service_materials"`
	SalesEmails      JSONArray `gorm:"type:jsonb;default:'[]'" json:"sales_emails"`

	// Relations
	Team Team `json:"-"`
}

// Bucket returns the value stored for the given column name.
func (td *TeamData) Bucket(column string) (JSONArray, bool) {
	switch column {
	case "tasks":
		return td.Tasks, true
	case "projects":
		return td.Projects, true
	case "sales":
		return td.Sales, true
	case "team_members":
		return td.TeamMembers, true
	case "meetings":
		return td.Meetings, true
	case "activities":
		return td.Activities, true
	case "documents":
		return td.Documents, true
	case "meeting_minutes":
		return td.MeetingMinutes, true
	case "leads":
		return td.Leads, true
	case "service_materials":
		return td.ServiceMaterials, true
	case "sales_emails":
		return td.SalesEmails, true
	}
	return nil, false
}

// SetBucket overwrites the value for the given column name.
func (td *TeamData) SetBucket(column string, v JSONArray) bool {
	switch column {
	case "tasks":
		td.Tasks = v
	case "projects":
		td.Projects = v
	case "sales":
		td.Sales = v
	case "team_members":
		td.TeamMembers = v
	case "meetings":
		td.Meetings = v
	case "activities":
		td.Activities = v
	case "documents":
		td.Documents = v
	case "meeting_minutes":
		td.MeetingMinutes = v
	case "leads":
		td.Leads = v
	case "service_materials":
		td.ServiceMaterials = v
	case "sales_emails":
		td.SalesEmails = v
	default:
		return false
	}
	return true
}
