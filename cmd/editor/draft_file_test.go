package main

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerDesk/internal/autosave"
	"careerDesk/internal/resume"
)

func TestLoadDraftWithPhotoPath(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "me.png"), buf.Bytes(), 0o644))

	draft := `{"title":"CV","skills":["Go"],"photoPath":"me.png","educations":[{"university":"A","startDate":"2019-09-01"}]}`
	path := filepath.Join(dir, "draft.json")
	require.NoError(t, os.WriteFile(path, []byte(draft), 0o644))

	d, err := loadDraft(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "CV", d.Title)
	assert.Equal(t, []string{"Go"}, d.Skills)
	require.Len(t, d.Educations, 1)
	assert.Equal(t, "2019-09-01", d.Educations[0].StartDate.String())

	require.NotNil(t, d.Photo)
	assert.Equal(t, "me.png", d.Photo.Name)
	assert.Equal(t, "image/png", d.Photo.Type)
	assert.EqualValues(t, buf.Len(), d.Photo.Size)
	assert.Equal(t, buf.Bytes(), d.Photo.Data)

	// 文件未变时重新加载得到相同的头像元数据
	again, err := loadDraft(path, nil)
	require.NoError(t, err)
	assert.False(t, autosave.PhotoChanged(d, again))
}

func TestLoadDraftErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := loadDraft(filepath.Join(dir, "missing.json"), nil)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = loadDraft(bad, nil)
	assert.Error(t, err)

	noPhoto := filepath.Join(dir, "nophoto.json")
	require.NoError(t, os.WriteFile(noPhoto, []byte(`{"photoPath":"gone.png"}`), 0o644))
	_, err = loadDraft(noPhoto, nil)
	assert.Error(t, err)
}

func TestFromResumeKeepsStoredPhotoURL(t *testing.T) {
	d := fromResume(&resume.Resume{Title: "CV", Photo: "https://cdn.example.test/p.png", Skills: []string{"Go"}})
	require.NotNil(t, d.Photo)
	assert.Equal(t, "https://cdn.example.test/p.png", d.Photo.URL)
	assert.Equal(t, "CV", d.Title)
	assert.Nil(t, fromResume(&resume.Resume{}).Photo)
}

func TestOpenLocatorPersistsResumeID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.json.address")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	loc, err := openLocator(path, "", logger)
	require.NoError(t, err)
	assert.Empty(t, loc.ResumeID())

	loc.ReplaceResumeID("r-9")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "resumeId=r-9")

	reopened, err := openLocator(path, "", logger)
	require.NoError(t, err)
	assert.Equal(t, "r-9", reopened.ResumeID())

	overridden, err := openLocator(path, "r-10", logger)
	require.NoError(t, err)
	assert.Equal(t, "r-10", overridden.ResumeID())
	raw, _ = os.ReadFile(path)
	assert.True(t, strings.Contains(string(raw), "resumeId=r-10"))
}

func TestLoadDraftKeepsStoredPhotoUnlessCleared(t *testing.T) {
	dir := t.TempDir()
	stored := fromResume(&resume.Resume{Title: "CV", Photo: "https://cdn.example.test/p.png"})

	path := filepath.Join(dir, "draft.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"CV v2"}`), 0o644))
	d, err := loadDraft(path, stored.Photo)
	require.NoError(t, err)
	require.NotNil(t, d.Photo)
	assert.Equal(t, "https://cdn.example.test/p.png", d.Photo.URL)
	assert.False(t, autosave.PhotoChanged(stored, d))

	require.NoError(t, os.WriteFile(path, []byte(`{"title":"CV v3","photo":null}`), 0o644))
	d, err = loadDraft(path, stored.Photo)
	require.NoError(t, err)
	assert.Nil(t, d.Photo)
	assert.True(t, autosave.PhotoChanged(stored, d))
}
