package models

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bucketColumns = []string{
	"tasks", "projects", "sales", "team_members", "meetings", "activities",
	"documents", "meeting_minutes", "leads", "service_materials", "sales_emails",
}

func TestTeamDataBucketAccessors(t *testing.T) {
	var td TeamData
	for i, col := range bucketColumns {
		value := JSONArray(fmt.Sprintf(`[{"i":%d}]`, i))
		require.True(t, td.SetBucket(col, value), "column %q", col)

		got, ok := td.Bucket(col)
		require.True(t, ok, "column %q", col)
		assert.Equal(t, value, got, "column %q", col)
	}

	_, ok := td.Bucket("nonexistent")
	assert.False(t, ok)
	assert.False(t, td.SetBucket("nonexistent", EmptyArray))
}

func TestJSONArrayValue(t *testing.T) {
	v, err := JSONArray(`[1,2]`).Value()
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, v)

	// Zero value defaults to an empty array, matching the column default.
	v, err = JSONArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)
}

func TestJSONArrayScan(t *testing.T) {
	var a JSONArray
	require.NoError(t, a.Scan([]byte(`[{"id":"t1"}]`)))
	assert.Equal(t, `[{"id":"t1"}]`, string(a))

	require.NoError(t, a.Scan(`[]`))
	assert.Equal(t, `[]`, string(a))

	require.NoError(t, a.Scan(nil))
	assert.Equal(t, `[]`, string(a))

	assert.Error(t, a.Scan(42))
}

func TestJSONArrayJSONRoundTrip(t *testing.T) {
	td := TeamData{TeamID: 7, Tasks: JSONArray(`[{"id":"t1"}]`)}

	out, err := json.Marshal(&td)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.JSONEq(t, `[{"id":"t1"}]`, string(decoded["tasks"]))
	// Unset buckets marshal as empty arrays, not null.
	assert.JSONEq(t, `[]`, string(decoded["projects"]))
}
