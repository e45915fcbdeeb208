package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/BotCanvas/FlowDesk/internal/models"
	"github.com/BotCanvas/FlowDesk/internal/store"
)

func newTestRedisStore(t *testing.T) *store.RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.NewRedisStoreFromClient(client)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	state, err := st.GetConversationState(ctx, "user123")
	if err != nil {
		t.Fatalf("GetConversationState failed: %v", err)
	}
	if state != nil {
		t.Errorf("expected nil for unknown user, got %+v", state)
	}

	saved := models.NewConversationState("user123", "start")
	saved.Variables["name"] = "Ana"
	saved.History = append(saved.History, "preference")
	if err := st.SaveConversationState(ctx, saved); err != nil {
		t.Fatalf("SaveConversationState failed: %v", err)
	}

	state, err = st.GetConversationState(ctx, "user123")
	if err != nil {
		t.Fatalf("GetConversationState failed: %v", err)
	}
	if state == nil {
		t.Fatal("expected state after save")
	}
	if state.CurrentStep != "start" || state.Variables["name"] != "Ana" {
		t.Errorf("unexpected state: %+v", state)
	}
	if len(state.History) != 2 {
		t.Errorf("expected full history preserved, got %v", state.History)
	}
}

func TestRedisStoreDeleteAndList(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	st.SaveConversationState(ctx, models.NewConversationState("b", "start"))
	st.SaveConversationState(ctx, models.NewConversationState("a", "start"))

	ids, err := st.ListConversationIDs(ctx)
	if err != nil {
		t.Fatalf("ListConversationIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("expected sorted ids [a b], got %v", ids)
	}

	if err := st.DeleteConversationState(ctx, "a"); err != nil {
		t.Fatalf("DeleteConversationState failed: %v", err)
	}
	state, err := st.GetConversationState(ctx, "a")
	if err != nil {
		t.Fatalf("GetConversationState failed: %v", err)
	}
	if state != nil {
		t.Error("expected state removed after delete")
	}

	ids, err = st.ListConversationIDs(ctx)
	if err != nil {
		t.Fatalf("ListConversationIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("expected index updated after delete, got %v", ids)
	}
}
