package domain

// Identity is the verified caller extracted from a bearer credential.
// Token, when present, is forwarded to downstream search services unchanged.
type Identity struct {
	UserID string
	Token  string
}
