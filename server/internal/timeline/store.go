package timeline

import (
	"context"

	"rootjourney/server/internal/model"
)

type Store interface {
	// Append 以 append-first 的契约写入事件流，返回本次写入的 seq。
	// 约定：同一 session 的 seq 单调递增。
	Append(ctx context.Context, sessionID string, evt *model.TurnEvent) (int64, error)
	// List 返回该 session 的全量事件，用于回放与审计。
	List(ctx context.Context, sessionID string) ([]model.TurnEvent, error)
}
