package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	svix "github.com/svix/svix-webhooks/go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"careerDesk/internal/database"
	"careerDesk/internal/errcode"
)

// EventUserCreated 是唯一会触发建档的事件类型。
const EventUserCreated = "user.created"

// Event 是身份服务推送的事件信封。
type Event struct {
	Type string    `json:"type"`
	Data EventUser `json:"data"`
}

// EventUser 是事件里携带的用户资料。
type EventUser struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	Email          string         `json:"email"`
	FirstName      *string        `json:"first_name"`
	LastName       *string        `json:"last_name"`
}

// EmailAddress 是事件中的邮箱条目。
type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail 返回首个邮箱，缺失时回退到 email 字段。
func (u EventUser) PrimaryEmail() string {
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return u.Email
}

// Verifier 校验 webhook 签名（svix-id / svix-timestamp / svix-signature）。
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier 使用 whsec_ 前缀的签名密钥构造 Verifier。
func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("init webhook verifier: %w", err)
	}
	return &Verifier{wh: wh}, nil
}

// Verify 校验签名并解析事件。
func (v *Verifier) Verify(payload []byte, headers http.Header) (*Event, error) {
	if err := v.wh.Verify(payload, headers); err != nil {
		return nil, errcode.Wrap(errcode.KindBadRequest, "invalid webhook signature", err)
	}
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, errcode.Wrap(errcode.KindBadRequest, "invalid webhook payload", err)
	}
	return &evt, nil
}

// Provisioner 根据身份事件在本地建档。
type Provisioner struct {
	db *gorm.DB
}

func NewProvisioner(db *gorm.DB) *Provisioner {
	return &Provisioner{db: db}
}

// Handle 处理一次事件投递；只有 user.created 会落库，重复投递不会重复建档。
// 返回值表示是否新建了用户。
func (p *Provisioner) Handle(ctx context.Context, evt *Event) (bool, error) {
	if evt.Type != EventUserCreated {
		return false, nil
	}
	if strings.TrimSpace(evt.Data.ID) == "" {
		return false, errcode.BadRequest("event user id is missing")
	}

	user := database.User{
		IdentityID: evt.Data.ID,
		Email:      evt.Data.PrimaryEmail(),
		FirstName:  deref(evt.Data.FirstName),
		LastName:   deref(evt.Data.LastName),
	}
	res := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "identity_id"}}, DoNothing: true}).
		Create(&user)
	if res.Error != nil {
		return false, errcode.Internal(fmt.Errorf("create user: %w", res.Error))
	}
	return res.RowsAffected > 0, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
