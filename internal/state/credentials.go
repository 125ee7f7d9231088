package state

// CredentialsFunc reports the signed-in identity; session.Store.Credentials
// has this shape.
type CredentialsFunc func() (uid, token string, ok bool)

// Holds reports whether the signed-in identity is still the one a call was
// made with. An empty uid matches any user holding token. A nil func holds
// for every caller, which is what single-store tests rely on.
func (f CredentialsFunc) Holds(uid, token string) bool {
	if f == nil {
		return true
	}
	curUID, curToken, ok := f()
	if !ok || curToken != token {
		return false
	}
	return uid == "" || curUID == uid
}
