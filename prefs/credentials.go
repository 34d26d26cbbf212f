// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\prefs\credentials.go
package prefs

import (
	"encoding/base64"
	"fmt"
)

const (
	keyUsername = "username"
	keyPassword = "password"
)

type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// CredentialCache はログイン情報を Store に保存します。
// パスワードは base64 で難読化するだけで、暗号化ではありません。
type CredentialCache struct {
	store Store
}

func NewCredentialCache(store Store) *CredentialCache {
	return &CredentialCache{store: store}
}

// Load は保存済みの資格情報を返します。片方でも欠けていれば ok=false です。
func (c *CredentialCache) Load() (Credentials, bool, error) {
	user, ok, err := c.store.Get(keyUsername)
	if err != nil || !ok || user == "" {
		return Credentials{}, false, err
	}
	encoded, ok, err := c.store.Get(keyPassword)
	if err != nil || !ok || encoded == "" {
		return Credentials{}, false, err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// 壊れた値は未保存として扱う
		return Credentials{}, false, nil
	}
	return Credentials{Username: user, Password: string(raw)}, true, nil
}

func (c *CredentialCache) Save(cred Credentials) error {
	if !cred.Complete() {
		return fmt.Errorf("username and password are required")
	}
	if err := c.store.Put(keyUsername, cred.Username); err != nil {
		return fmt.Errorf("failed to save username: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(cred.Password))
	if err := c.store.Put(keyPassword, encoded); err != nil {
		return fmt.Errorf("failed to save password: %w", err)
	}
	return nil
}

func (c *CredentialCache) Clear() error {
	return c.store.Clear()
}
