package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/suPer8Hu/gopherchat/internal/store/memstore"
)

func TestConversationKeyOrderIndependent(t *testing.T) {
	a := ConversationKey("local_alpha", "local_beta")
	b := ConversationKey("local_beta", "local_alpha")
	if a != b {
		t.Fatalf("expected same key for both orders, got %q and %q", a, b)
	}
	if !strings.HasPrefix(a, "conversation:") {
		t.Fatalf("unexpected key shape: %q", a)
	}
}

func TestGetOrCreateConversation(t *testing.T) {
	s := memstore.New()
	repo := NewRepo(s)
	ctx := context.Background()

	id1, err := repo.GetOrCreateConversation(ctx, "local_a", "local_b")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id2, err := repo.GetOrCreateConversation(ctx, "local_b", "local_a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected one conversation per pair, got %q and %q", id1, id2)
	}

	for _, uid := range []string{"local_a", "local_b"} {
		members, err := s.SMembers(ctx, UserConversationsKey(uid))
		if err != nil {
			t.Fatalf("smembers %s: %v", uid, err)
		}
		if len(members) != 1 || members[0] != id1 {
			t.Fatalf("membership for %s: %v", uid, members)
		}
	}
}

func TestAppendAndListMessages(t *testing.T) {
	s := memstore.New()
	repo := NewRepo(s)
	ctx := context.Background()

	conv, err := repo.GetOrCreateConversation(ctx, "local_a", "local_b")
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}

	var sent []Message
	for i, content := range []string{"hey", "hello", "how are you"} {
		sender := "local_a"
		if i%2 == 1 {
			sender = "local_b"
		}
		m, err := repo.AppendMessage(ctx, conv, sender, content, MessageTypeText)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		sent = append(sent, m)
	}

	msgs, err := repo.ListMessages(ctx, conv, 0, -1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != len(sent) {
		t.Fatalf("expected %d messages, got %d", len(sent), len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp < msgs[i-1].Timestamp {
			t.Fatalf("messages out of timestamp order at %d: %d < %d", i, msgs[i].Timestamp, msgs[i-1].Timestamp)
		}
	}

	// every indexed key must exist as an authoritative record
	for _, m := range msgs {
		fields, err := s.HGetAll(ctx, m.ID)
		if err != nil {
			t.Fatalf("hgetall %s: %v", m.ID, err)
		}
		if len(fields) == 0 {
			t.Fatalf("indexed message %s has no standalone record", m.ID)
		}
		if fields["content"] == "" {
			t.Fatalf("message %s missing content", m.ID)
		}
	}
}

func TestListMessagesRange(t *testing.T) {
	s := memstore.New()
	repo := NewRepo(s)
	ctx := context.Background()

	conv, _ := repo.GetOrCreateConversation(ctx, "local_a", "local_b")
	for i := 0; i < 5; i++ {
		if _, err := repo.AppendMessage(ctx, conv, "local_a", "m", ""); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	tail, err := repo.ListMessages(ctx, conv, -2, -1)
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(tail) != 2 {
		t.Fatalf("expected 2 tail messages, got %d", len(tail))
	}
}

func TestConcurrentAppendsListInTimestampOrder(t *testing.T) {
	s := memstore.New()
	repo := NewRepo(s)
	ctx := context.Background()

	conv, _ := repo.GetOrCreateConversation(ctx, "local_a", "local_b")

	done := make(chan error, 2)
	for _, sender := range []string{"local_a", "local_b"} {
		go func(sender string) {
			for i := 0; i < 10; i++ {
				if _, err := repo.AppendMessage(ctx, conv, sender, "m", ""); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}(sender)
	}
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := repo.ListMessages(ctx, conv, 0, -1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 20 {
		t.Fatalf("expected 20 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp < msgs[i-1].Timestamp {
			t.Fatalf("non-decreasing timestamp order violated at %d", i)
		}
	}
}

func TestListOtherUsersSkipsIndexAndDegenerateKeys(t *testing.T) {
	s := memstore.New()
	repo := NewRepo(s)
	ctx := context.Background()

	for _, u := range []User{
		{ID: "local_a", Email: "a@example.com", Name: "A User"},
		{ID: "local_b", Email: "b@example.com", Name: "B User"},
		{ID: "local_c", Email: "c@example.com", Name: "C User"},
	} {
		if err := repo.PutUser(ctx, u); err != nil {
			t.Fatalf("put user: %v", err)
		}
	}
	// derived index keys plus a degenerate set under the user prefix
	if _, err := repo.GetOrCreateConversation(ctx, "local_a", "local_b"); err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if err := s.SAdd(ctx, "user:degenerate", "junk"); err != nil {
		t.Fatalf("sadd: %v", err)
	}

	users, err := repo.ListOtherUsers(ctx, "local_a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 other users, got %d: %v", len(users), users)
	}
	for _, u := range users {
		if u.ID == "local_a" {
			t.Fatalf("caller not excluded from listing")
		}
	}
}

func TestFindUserByEmail(t *testing.T) {
	s := memstore.New()
	repo := NewRepo(s)
	ctx := context.Background()

	want := User{ID: "local_xyz", Email: "dev@example.com", Name: "Dev User"}
	if err := repo.PutUser(ctx, want); err != nil {
		t.Fatalf("put user: %v", err)
	}

	got, found, err := repo.FindUserByEmail(ctx, "dev@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !found || got.ID != want.ID {
		t.Fatalf("expected %q, got found=%v user=%v", want.ID, found, got)
	}

	_, found, err = repo.FindUserByEmail(ctx, "missing@example.com")
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if found {
		t.Fatalf("unexpected match for unknown email")
	}
}
