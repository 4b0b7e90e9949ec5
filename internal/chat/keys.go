package chat

import (
	"crypto/rand"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

const (
	userKeyPrefix         = "user:"
	conversationKeyPrefix = "conversation:"
	messageKeyPrefix      = "message:"
)

func UserKey(id string) string { return userKeyPrefix + id }

func UserConversationsKey(id string) string { return userKeyPrefix + id + ":conversations" }

// ConversationKey is order-independent: the participant ids are sorted before
// joining, so (a,b) and (b,a) resolve to the same key.
func ConversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return conversationKeyPrefix + strings.Join(pair, ":")
}

func ConversationMessagesKey(conversationID string) string {
	return conversationID + ":messages"
}

// NewMessageKey embeds the timestamp plus a short random suffix; the suffix
// disambiguates same-millisecond messages, since the timestamp alone is not
// unique.
func NewMessageKey(timestampMillis int64) (string, error) {
	suffix, err := randBase36(7)
	if err != nil {
		return "", err
	}
	return messageKeyPrefix + strconv.FormatInt(timestampMillis, 10) + ":" + suffix, nil
}

// NewLocalUserID mints a namespaced pseudo-random user identifier.
func NewLocalUserID() (string, error) {
	suffix, err := randBase36(9)
	if err != nil {
		return "", err
	}
	return "local_" + suffix, nil
}

// IsIndexKey reports whether a scanned key is a derived index (membership set
// or message zset) rather than an entity hash.
func IsIndexKey(key string) bool {
	return strings.Contains(key, ":conversations") || strings.Contains(key, ":messages")
}

func randBase36(n int) (string, error) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
