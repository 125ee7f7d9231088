package normalize

import (
	"encoding/json"
	"strings"

	"github.com/five82/tanker/internal/models"
)

// User extracts the user record. knownUID is attached because the by-id
// endpoint omits it; when empty, the payload's uid/id/_id is used.
func User(payload json.RawMessage, knownUID string) (models.User, bool) {
	raw, _, ok := Extract(payload, userRules)
	if !ok {
		return models.User{}, false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.User{}, false
	}

	u := models.User{
		UID:         strings.TrimSpace(knownUID),
		Name:        str(m, "name", "fullName"),
		Email:       str(m, "email"),
		Role:        models.Role(strings.ToLower(str(m, "role"))),
		PhoneNumber: str(m, "phoneNumber", "phone"),
		Rating:      numberPtr(m, "rating"),
	}
	if u.UID == "" {
		u.UID = id(m, "uid", "id", "_id")
	}
	if n, ok := integer(m, "totalReviews"); ok {
		u.TotalReviews = &n
	}
	if u.UID == "" && u.Email == "" && u.Name == "" {
		return models.User{}, false
	}
	return u, true
}

// Auth extracts the token and user from a login/registration reply.
func Auth(payload json.RawMessage) (models.User, string, bool) {
	raw, _, ok := Extract(payload, tokenRules)
	if !ok {
		return models.User{}, "", false
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil || strings.TrimSpace(token) == "" {
		return models.User{}, "", false
	}
	user, ok := User(payload, "")
	if !ok || user.UID == "" {
		return models.User{}, "", false
	}
	return user, token, true
}
