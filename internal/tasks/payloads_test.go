package tasks

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeExportTask(t *testing.T) {
	task, err := NewResumeExportTask("r-1", "user_1", "corr")
	require.NoError(t, err)
	assert.Equal(t, TypeResumeExport, task.Type())

	p, err := ParseResumeExport(task)
	require.NoError(t, err)
	assert.Equal(t, ResumeExportPayload{ResumeID: "r-1", IdentityID: "user_1", CorrelationID: "corr"}, p)

	_, err = ParseResumeExport(asynq.NewTask(TypeResumeExport, []byte(`{"identity_id":"user_1"}`)))
	assert.ErrorContains(t, err, "resume_id")

	_, err = ParseResumeExport(asynq.NewTask(TypeResumeExport, []byte(`nope`)))
	assert.Error(t, err)
}

func TestBlobDeleteTask(t *testing.T) {
	task, err := NewBlobDeleteTask([]string{"resume-photos/u1/a.png", "https://cdn.example.test/b.pdf"}, "corr")
	require.NoError(t, err)
	assert.Equal(t, TypeBlobDelete, task.Type())

	p, err := ParseBlobDelete(task)
	require.NoError(t, err)
	assert.Len(t, p.Refs, 2)
	assert.Equal(t, "corr", p.CorrelationID)
}

func TestNotifyChannel(t *testing.T) {
	assert.Equal(t, "user_notify:user_1", NotifyChannel("user_1"))
}
