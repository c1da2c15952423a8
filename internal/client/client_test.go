package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerDesk/internal/autosave"
)

func captureServer(t *testing.T, status int, reply string) (*httptest.Server, *map[string]any, *http.Header) {
	t.Helper()
	var body map[string]any
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/resume/create", r.URL.Path)
		headers = r.Header.Clone()
		body = nil
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &body, &headers
}

func TestSaveOmitsPhotoWhenUnchanged(t *testing.T) {
	srv, body, headers := captureServer(t, http.StatusOK, `{"id":"r-1","title":"T"}`)
	c := New(srv.URL, WithToken("tok"))

	out, err := c.Save(context.Background(), autosave.SaveRequest{
		IdentityID: "u1",
		ResumeID:   "r-1",
		Draft:      autosave.Draft{Title: "T", Skills: []string{"Go"}, Photo: &autosave.Photo{URL: "https://cdn/x.png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "r-1", out.ID)
	assert.Equal(t, "Bearer tok", headers.Get("Authorization"))

	data := (*body)["resumeData"].(map[string]any)
	assert.NotContains(t, data, "photo")
	assert.Equal(t, "r-1", (*body)["resumeId"])
	assert.Equal(t, []any{"Go"}, data["skills"])
}

func TestSaveEncodesNewAndClearedPhoto(t *testing.T) {
	srv, body, _ := captureServer(t, http.StatusCreated, `{"id":"r-9"}`)
	c := New(srv.URL)

	_, err := c.Save(context.Background(), autosave.SaveRequest{
		IdentityID:   "u1",
		PhotoChanged: true,
		Draft:        autosave.Draft{Photo: &autosave.Photo{Type: "image/png", Data: []byte{1, 2, 3}}},
	})
	require.NoError(t, err)
	data := (*body)["resumeData"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,AQID", data["photo"])
	assert.NotContains(t, *body, "resumeId")

	_, err = c.Save(context.Background(), autosave.SaveRequest{IdentityID: "u1", PhotoChanged: true})
	require.NoError(t, err)
	data = (*body)["resumeData"].(map[string]any)
	require.Contains(t, data, "photo")
	assert.Nil(t, data["photo"])
}

func TestSaveSurfacesAPIErrors(t *testing.T) {
	srv, _, _ := captureServer(t, http.StatusNotFound, `{"error":"user not found"}`)

	_, err := New(srv.URL).Save(context.Background(), autosave.SaveRequest{IdentityID: "ghost"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "user not found", apiErr.Message)
}
