package auth

// CreateKeyRequest names a new agent key.
type CreateKeyRequest struct {
	Name string `json:"name"`
}

// CreatedKey is the one-time response carrying a raw agent key.
type CreatedKey struct {
	AgentKey
	Key string `json:"key"`
}

// TokenRequest names the subject of a subscriber token.
type TokenRequest struct {
	Subject string `json:"subject"`
}
