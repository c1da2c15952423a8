package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"careerDesk/internal/database"
	"careerDesk/internal/errcode"
)

// Resolver 把外部身份 ID 解析为本地 User。
// 用户创建后不可变，解析结果按 TTL 缓存；未找到的结果不缓存。
type Resolver struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewResolver 构造 Resolver；ttl<=0 时使用 10 分钟。
func NewResolver(db *gorm.DB, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Resolver{db: db, cache: cache.New(ttl, 2*ttl)}
}

// Resolve 返回身份对应的用户；未知身份返回 NotFound。
func (r *Resolver) Resolve(ctx context.Context, identityID string) (*database.User, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, errcode.BadRequest("identity id is required")
	}

	if cached, found := r.cache.Get(identityID); found {
		user := cached.(database.User)
		return &user, nil
	}

	var user database.User
	err := r.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errcode.NotFound("user not found")
	case err != nil:
		return nil, errcode.Internal(fmt.Errorf("query user: %w", err))
	}

	r.cache.Set(identityID, user, cache.DefaultExpiration)
	return &user, nil
}

// Forget 清除缓存中的某个身份。
func (r *Resolver) Forget(identityID string) {
	r.cache.Delete(identityID)
}
