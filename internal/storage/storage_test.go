package storage

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestKeyFromRef(t *testing.T) {
	base := "https://cdn.example.com/resumes"

	assert.Equal(t, "resume-photos/u1/a.png", keyFromRef(base, "https://cdn.example.com/resumes/resume-photos/u1/a.png"))
	assert.Equal(t, "resume-photos/u1/a.png", keyFromRef(base+"/", "https://cdn.example.com/resumes/resume-photos/u1/a.png?x=1"))
	assert.Equal(t, "exports/r1.pdf", keyFromRef(base, "exports/r1.pdf"))
	assert.Equal(t, "", keyFromRef(base, "  "))
}

func TestIsNoSuchKey(t *testing.T) {
	assert.True(t, IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, IsNoSuchKey(errors.New("The specified key does not exist.")))
	assert.False(t, IsNoSuchKey(errors.New("access denied")))
	assert.False(t, IsNoSuchKey(nil))
}
