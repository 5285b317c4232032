package sync

import (
	"fmt"
)

// Field identifies one synchronized bucket within a team's document set.
// Dispatch on Field is exhaustive; unknown names never get past ParseField.
type Field int

const (
	FieldTasks Field = iota
	FieldProjects
	FieldSales
	FieldTeamMembers
	FieldMeetings
	FieldActivities
	FieldDocuments
	FieldMeetingMinutes
	FieldLeads
	FieldServiceMaterials
	FieldSalesEmails
)

// ErrUnknownField is returned for names outside the enumerated bucket set.
var ErrUnknownField = fmt.Errorf("unknown data field")

// aliases maps the client-facing dataType names onto canonical fields. The
// web client historically used camelCase "storage key" names alongside the
// column names, so both spellings are accepted.
var aliases = map[string]Field{
	"tasks":             FieldTasks,
	"tasksData":         FieldTasks,
	"projects":          FieldProjects,
	"projectsData":      FieldProjects,
	"sales":             FieldSales,
	"salesData":         FieldSales,
	"team_members":      FieldTeamMembers,
	"teamMembers":       FieldTeamMembers,
	"meetings":          FieldMeetings,
	"activities":        FieldActivities,
	"documents":         FieldDocuments,
	"documentsData":     FieldDocuments,
	"meeting_minutes":   FieldMeetingMinutes,
	"meetingMinutes":    FieldMeetingMinutes,
	"leads":             FieldLeads,
	"leadsData":         FieldLeads,
	"service_materials": FieldServiceMaterials,
	"serviceMaterials":  FieldServiceMaterials,
	"sales_emails":      FieldSalesEmails,
	"salesEmails":       FieldSalesEmails,
}

// ParseField resolves a client-provided dataType name to a Field.
func ParseField(name string) (Field, error) {
	if f, ok := aliases[name]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Column returns the team_data column holding this field.
func (f Field) Column() string {
	switch f {
	case FieldTasks:
		return "tasks"
	case FieldProjects:
		return "projects"
	case FieldSales:
		return "sales"
	case FieldTeamMembers:
		return "team_members"
	case FieldMeetings:
		return "meetings"
	case FieldActivities:
		return "activities"
	case FieldDocuments:
		return "documents"
	case FieldMeetingMinutes:
		return "meeting_minutes"
	case FieldLeads:
		return "leads"
	case FieldServiceMaterials:
		return "service_materials"
	case FieldSalesEmails:
		return "sales_emails"
	}
	panic(fmt.Sprintf("sync: invalid field %d", int(f)))
}

// String returns the canonical bucket name, identical to the column name.
func (f Field) String() string {
	return f.Column()
}

// Fields returns every synchronized field in declaration order.
func Fields() []Field {
	return []Field{
		FieldTasks,
		FieldProjects,
		FieldSales,
		FieldTeamMembers,
		FieldMeetings,
		FieldActivities,
		FieldDocuments,
		FieldMeetingMinutes,
		FieldLeads,
		FieldServiceMaterials,
		FieldSalesEmails,
	}
}

// AggregateFields is the subset served by the read-all endpoint. Documents,
// meeting minutes, leads, service materials and sales emails are excluded:
// they predate the aggregate and their clients always fetch per-field, so the
// narrower response is kept as a deliberate interface choice.
func AggregateFields() []Field {
	return []Field{
		FieldTasks,
		FieldProjects,
		FieldSales,
		FieldTeamMembers,
		FieldMeetings,
		FieldActivities,
	}
}
