package session

import (
	"context"
	"errors"

	"rootjourney/server/internal/model"
)

// ErrNotFound 表示会话不存在或已过期。
// 这是唯一允许穿透到调用方的"客户端可见"会话错误。
var ErrNotFound = errors.New("session not found")

// Store 是会话档案的持久化接口。
// 过期（TTL）由实现负责，引擎不做过期逻辑；过期会话表现为 ErrNotFound。
type Store interface {
	Load(ctx context.Context, id string) (*model.Profile, error)
	Save(ctx context.Context, p *model.Profile) error
}
