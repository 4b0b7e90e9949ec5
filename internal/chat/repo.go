package chat

import (
	"context"
	"log"
	"time"

	"github.com/suPer8Hu/gopherchat/internal/store"
)

const scanPageSize = 100

// Repo is the conversation/message repository over the key/value store. It
// holds no cached state: every read goes back to the store.
type Repo struct {
	store store.Store
}

func NewRepo(s store.Store) *Repo {
	return &Repo{store: s}
}

func (r *Repo) GetUser(ctx context.Context, id string) (User, bool, error) {
	fields, err := r.store.HGetAll(ctx, UserKey(id))
	if err != nil {
		return User{}, false, err
	}
	if len(fields) == 0 {
		return User{}, false, nil
	}
	return UserFromFields(fields), true, nil
}

func (r *Repo) PutUser(ctx context.Context, u User) error {
	return r.store.HSet(ctx, UserKey(u.ID), u.Fields())
}

// scanUserKeys walks the keyspace for user record keys, excluding the derived
// membership/message index keys and any key that is not hash-typed. Scan may
// surface degenerate keys of other types; those are skipped per key, never
// fatal.
func (r *Repo) scanUserKeys(ctx context.Context) ([]string, error) {
	var keys []string
	cursor := "0"
	for {
		next, page, err := r.store.Scan(ctx, cursor, userKeyPrefix+"*", scanPageSize)
		if err != nil {
			return nil, err
		}
		for _, key := range page {
			if IsIndexKey(key) {
				continue
			}
			kt, err := r.store.Type(ctx, key)
			if err != nil {
				log.Printf("[Repo] type check failed key=%s err=%v", key, err)
				continue
			}
			if kt != store.TypeHash {
				continue
			}
			keys = append(keys, key)
		}
		cursor = next
		if cursor == "0" {
			return keys, nil
		}
	}
}

// FindUserByEmail does a full keyspace scan; there is no secondary index on
// email. O(total users) per call.
func (r *Repo) FindUserByEmail(ctx context.Context, email string) (User, bool, error) {
	keys, err := r.scanUserKeys(ctx)
	if err != nil {
		return User{}, false, err
	}
	for _, key := range keys {
		fields, err := r.store.HGetAll(ctx, key)
		if err != nil {
			log.Printf("[Repo] hgetall failed key=%s err=%v", key, err)
			continue
		}
		if fields["email"] == email {
			return UserFromFields(fields), true, nil
		}
	}
	return User{}, false, nil
}

// ListOtherUsers returns every stored user except the given id, in store scan
// order. No pagination.
func (r *Repo) ListOtherUsers(ctx context.Context, excludeID string) ([]User, error) {
	keys, err := r.scanUserKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []User{}, nil
	}

	pipe := r.store.Pipeline()
	for _, key := range keys {
		pipe.HGetAll(key)
	}
	results, err := pipe.Exec(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(results))
	for _, fields := range results {
		u := UserFromFields(fields)
		if u.ID == "" || u.ID == excludeID {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// GetOrCreateConversation resolves the deterministic key for the pair and
// creates the record plus both membership entries on first contact.
func (r *Repo) GetOrCreateConversation(ctx context.Context, userA, userB string) (string, error) {
	id := ConversationKey(userA, userB)

	exists, err := r.store.Exists(ctx, id)
	if err != nil {
		return "", err
	}
	if !exists {
		conv := Conversation{ID: id, Participant1: userA, Participant2: userB}
		if err := r.store.HSet(ctx, id, conv.Fields()); err != nil {
			return "", err
		}
		if err := r.store.SAdd(ctx, UserConversationsKey(userA), id); err != nil {
			return "", err
		}
		if err := r.store.SAdd(ctx, UserConversationsKey(userB), id); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (r *Repo) GetConversation(ctx context.Context, id string) (Conversation, bool, error) {
	fields, err := r.store.HGetAll(ctx, id)
	if err != nil {
		return Conversation{}, false, err
	}
	if len(fields) == 0 {
		return Conversation{}, false, nil
	}
	return ConversationFromFields(id, fields), true, nil
}

// ListConversations reads the user's membership set and hydrates each
// conversation record.
func (r *Repo) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	ids, err := r.store.SMembers(ctx, UserConversationsKey(userID))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Conversation{}, nil
	}

	pipe := r.store.Pipeline()
	for _, id := range ids {
		pipe.HGetAll(id)
	}
	results, err := pipe.Exec(ctx)
	if err != nil {
		return nil, err
	}

	convs := make([]Conversation, 0, len(results))
	for i, fields := range results {
		if len(fields) == 0 {
			continue
		}
		convs = append(convs, ConversationFromFields(ids[i], fields))
	}
	return convs, nil
}

// AppendMessage writes the authoritative message hash, then inserts its key
// into the conversation's sorted-set index with score = timestamp.
func (r *Repo) AppendMessage(ctx context.Context, conversationID, senderID, content, msgType string) (Message, error) {
	if msgType == "" {
		msgType = MessageTypeText
	}
	now := time.Now().UnixMilli()

	key, err := NewMessageKey(now)
	if err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:        key,
		SenderID:  senderID,
		Content:   content,
		Timestamp: now,
		Type:      msgType,
	}
	if err := r.store.HSet(ctx, key, msg.Fields()); err != nil {
		return Message{}, err
	}
	if err := r.store.ZAdd(ctx, ConversationMessagesKey(conversationID), float64(now), key); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// ListMessages returns messages ascending by timestamp score. Same-score ties
// fall back to the member's lexicographic order, which is not guaranteed to
// match send order.
func (r *Repo) ListMessages(ctx context.Context, conversationID string, start, stop int64) ([]Message, error) {
	keys, err := r.store.ZRange(ctx, ConversationMessagesKey(conversationID), start, stop)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []Message{}, nil
	}

	pipe := r.store.Pipeline()
	for _, key := range keys {
		pipe.HGetAll(key)
	}
	results, err := pipe.Exec(ctx)
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(results))
	for i, fields := range results {
		if len(fields) == 0 {
			continue
		}
		msgs = append(msgs, MessageFromFields(keys[i], fields))
	}
	return msgs, nil
}
