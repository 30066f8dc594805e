package alert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParse covers numeric and string ids and the raw payload.
func TestParse(t *testing.T) {
	t.Parallel()

	a, err := Parse(` {"id": 42, "data": ["south"], "title": "Rocket", "desc": "Enter shelter"} `)
	require.NoError(t, err)
	require.Equal(t, int64(42), a.ID)
	require.Equal(t, []string{"south"}, a.Regions)
	require.Equal(t, "Rocket", a.Title)
	require.Equal(t, "Enter shelter", a.Description)
	require.JSONEq(t, `{"id":42,"data":["south"],"title":"Rocket","desc":"Enter shelter"}`, string(a.Raw))

	a, err = Parse(`{"id":"133579998070000000","cat":"1","title":"ירי רקטות וטילים","data":["שדרות"],"desc":"היכנסו למרחב המוגן"}`)
	require.NoError(t, err)
	require.Equal(t, int64(133579998070000000), a.ID)
	require.Equal(t, 1, a.Category)
	require.True(t, a.HasRegion("שדרות"))
	require.False(t, a.HasRegion("אשקלון"))
}

// TestParse_Malformed verifies every failure wraps ErrMalformed.
func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{
		"",
		"<html>blocked</html>",
		`{"data":["south"]}`,
		`{"id":"abc"}`,
		`{"id":1,"data":"south"}`,
	} {
		_, err := Parse(payload)
		require.ErrorIs(t, err, ErrMalformed, payload)
	}
}

// TestParse_UnreadableCategory keeps alerts whose category cannot be read.
func TestParse_UnreadableCategory(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{
		`{"id":1,"cat":"x","data":["south"]}`,
		`{"id":1,"cat":"","data":["south"]}`,
		`{"id":1,"cat":null,"data":["south"]}`,
		`{"id":1,"data":["south"]}`,
	} {
		a, err := Parse(payload)
		require.NoError(t, err, payload)
		require.Equal(t, int64(1), a.ID, payload)
		require.Equal(t, 0, a.Category, payload)
		require.True(t, a.HasRegion("south"), payload)
	}
}

// TestMarshalJSON checks that the received record is re-emitted untouched.
func TestMarshalJSON(t *testing.T) {
	t.Parallel()

	a, err := Parse(`{"id": 7, "data": ["north"], "title": "Drone", "desc": "", "extra": true}`)
	require.NoError(t, err)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":7,"data":["north"],"title":"Drone","desc":"","extra":true}`, string(out))

	// Without a raw payload the typed fields are used.
	out, err = json.Marshal(&Alert{ID: 8, Title: "t", Regions: []string{"r"}})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":8,"title":"t","data":["r"],"desc":""}`, string(out))
}

// TestVerdictString keeps log and metric labels stable.
func TestVerdictString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "empty", Empty.String())
	require.Equal(t, "suppressed", Suppressed.String())
	require.Equal(t, "dispatch", Dispatch.String())
	require.Equal(t, "unknown", Verdict(9).String())
}
