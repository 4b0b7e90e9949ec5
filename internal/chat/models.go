package chat

import "strconv"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// User is the authoritative user record persisted under user:<id>.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture,omitempty"`
}

func (u User) Fields() map[string]string {
	return map[string]string{
		"id":          u.ID,
		"email":       u.Email,
		"name":        u.Name,
		"given_name":  u.GivenName,
		"family_name": u.FamilyName,
		"picture":     u.Picture,
	}
}

func UserFromFields(f map[string]string) User {
	return User{
		ID:         f["id"],
		Email:      f["email"],
		Name:       f["name"],
		GivenName:  f["given_name"],
		FamilyName: f["family_name"],
		Picture:    f["picture"],
	}
}

// Conversation holds the two participants; the ID is the full store key and
// is a pure function of the participant pair.
type Conversation struct {
	ID           string `json:"id"`
	Participant1 string `json:"participant1"`
	Participant2 string `json:"participant2"`
}

func (c Conversation) Fields() map[string]string {
	return map[string]string{
		"participant1": c.Participant1,
		"participant2": c.Participant2,
	}
}

func ConversationFromFields(id string, f map[string]string) Conversation {
	return Conversation{
		ID:           id,
		Participant1: f["participant1"],
		Participant2: f["participant2"],
	}
}

// Message is immutable once written. The ID is the full store key; Timestamp
// is epoch milliseconds and doubles as the sort score in the conversation
// index.
type Message struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"messageType"`
}

func (m Message) Fields() map[string]string {
	return map[string]string{
		"senderId":    m.SenderID,
		"content":     m.Content,
		"timestamp":   strconv.FormatInt(m.Timestamp, 10),
		"messageType": m.Type,
	}
}

func MessageFromFields(id string, f map[string]string) Message {
	ts, _ := strconv.ParseInt(f["timestamp"], 10, 64)
	return Message{
		ID:        id,
		SenderID:  f["senderId"],
		Content:   f["content"],
		Timestamp: ts,
		Type:      f["messageType"],
	}
}
