package resume

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotoFieldDistinguishesAbsentNullAndValue(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		set     bool
		cleared bool
		value   string
	}{
		{name: "absent", body: `{"title":"x"}`},
		{name: "null", body: `{"photo":null}`, set: true, cleared: true},
		{name: "empty", body: `{"photo":""}`, set: true, cleared: true},
		{name: "value", body: `{"photo":"data:image/png;base64,AAAA"}`, set: true, value: "data:image/png;base64,AAAA"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var d ResumeData
			require.NoError(t, json.Unmarshal([]byte(tc.body), &d))
			assert.Equal(t, tc.set, d.Photo.Set)
			assert.Equal(t, tc.cleared, d.Photo.Cleared())
			assert.Equal(t, tc.value, d.Photo.Value)
		})
	}
}

func TestPhotoFieldOmittedWhenUnset(t *testing.T) {
	out, err := json.Marshal(ResumeData{Title: "x"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"photo"`)

	out, err = json.Marshal(ResumeData{Photo: NewPhoto("")})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"photo":null`)
}

func TestSkillsAcceptListOrCommaString(t *testing.T) {
	var d ResumeData
	require.NoError(t, json.Unmarshal([]byte(`{"skills":" Go, SQL ,,Docker "}`), &d))
	assert.Equal(t, Skills{"Go", "SQL", "Docker"}, d.Skills)

	require.NoError(t, json.Unmarshal([]byte(`{"skills":["Go"," ","Rust"]}`), &d))
	assert.Equal(t, Skills{"Go", "Rust"}, d.Skills)
}
