package account

import (
	"encoding/json"
	"time"
)

// record is the JSON encoding used by the key/value adapters (Badger, Redis).
type record struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Avatar      string    `json:"avatar,omitempty"`
	AuthHash    string    `json:"auth_hash"`
	PublicKey   string    `json:"public_key"`
	SecretKey   string    `json:"secret_key"`
	SessionHash *string   `json:"session_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func encodeRecord(a Account) ([]byte, error) {
	return json.Marshal(record{
		ID:          a.ID,
		Type:        a.Type,
		Name:        a.Name,
		Email:       a.Email,
		Phone:       a.Phone,
		Avatar:      a.Avatar,
		AuthHash:    a.AuthHash,
		PublicKey:   a.PublicKey,
		SecretKey:   a.SecretKey,
		SessionHash: a.SessionHash,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	})
}

func decodeRecord(b []byte) (Account, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return Account{}, err
	}
	return Account{
		ID:          r.ID,
		Type:        r.Type,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Avatar:      r.Avatar,
		AuthHash:    r.AuthHash,
		PublicKey:   r.PublicKey,
		SecretKey:   r.SecretKey,
		SessionHash: r.SessionHash,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}
