package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，生产者与消费者共用。
const (
	TypeResumeExport = "resume:export"
	TypeBlobDelete   = "blob:delete"
)

// ResumeExportPayload 描述一次简历 PDF 导出。
type ResumeExportPayload struct {
	ResumeID      string `json:"resume_id"`
	IdentityID    string `json:"identity_id"`
	CorrelationID string `json:"correlation_id"`
}

// BlobDeletePayload 列出待删除的对象（URL 或 key）。
type BlobDeletePayload struct {
	Refs          []string `json:"refs"`
	CorrelationID string   `json:"correlation_id"`
}

func NewResumeExportTask(resumeID, identityID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeExportPayload{
		ResumeID:      resumeID,
		IdentityID:    identityID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeExport, payload), nil
}

func NewBlobDeleteTask(refs []string, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(BlobDeletePayload{Refs: refs, CorrelationID: correlationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBlobDelete, payload), nil
}

// ParseResumeExport 解析导出任务载荷。
func ParseResumeExport(task *asynq.Task) (ResumeExportPayload, error) {
	var p ResumeExportPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", TypeResumeExport, err)
	}
	if p.ResumeID == "" {
		return p, fmt.Errorf("%s payload missing resume_id", TypeResumeExport)
	}
	return p, nil
}

func ParseBlobDelete(task *asynq.Task) (BlobDeletePayload, error) {
	var p BlobDeletePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", TypeBlobDelete, err)
	}
	return p, nil
}

// NotifyChannel 返回某个身份的 Redis 通知频道。
func NotifyChannel(identityID string) string {
	return "user_notify:" + identityID
}
