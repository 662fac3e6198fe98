package timeline

import (
	"context"
	"testing"

	"rootjourney/server/internal/model"
)

func TestAppendAssignsMonotonicSeq(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seq, err := store.Append(ctx, "s-1", &model.TurnEvent{Type: model.EventQuestionAsked})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if seq != int64(i+1) {
			t.Errorf("seq = %d, want %d", seq, i+1)
		}
	}

	// 不同 session 的 seq 互不影响
	seq, _ := store.Append(ctx, "s-2", &model.TurnEvent{Type: model.EventQuestionAsked})
	if seq != 1 {
		t.Errorf("其他 session 首个 seq = %d, want 1", seq)
	}
}

func TestListReturnsOrderedCopy(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, _ = store.Append(ctx, "s-1", &model.TurnEvent{Type: model.EventQuestionAsked, Question: "q1"})
	_, _ = store.Append(ctx, "s-1", &model.TurnEvent{Type: model.EventAnswerReceived, Answer: "a1"})

	events, err := store.List(ctx, "s-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 1 || events[1].Seq != 2 {
		t.Errorf("seq 未按追加顺序: %+v", events)
	}
	if events[0].SessionID != "s-1" {
		t.Errorf("未补全 SessionID: %+v", events[0])
	}
	if events[0].ServerTS.IsZero() {
		t.Error("未补全 ServerTS")
	}

	events[0].Question = "mutated"
	again, _ := store.List(ctx, "s-1")
	if again[0].Question != "q1" {
		t.Error("List 返回值修改污染了内部数据")
	}
	t.Logf("✓ 事件流按 seq 有序且返回副本")
}

func TestListEmptySession(t *testing.T) {
	store := NewInMemoryStore()
	events, err := store.List(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("空 session 应返回空列表, got %d", len(events))
	}
}
