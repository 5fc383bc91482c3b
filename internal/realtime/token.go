package realtime

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing realtime token")
	ErrInvalidToken = errors.New("invalid realtime token")
	ErrExpiredToken = errors.New("expired realtime token")
)

const (
	OpSubscribe = "subscribe"
	OpPublish   = "publish"
)

// Capability maps channel names (or "*") to the operations allowed on them.
type Capability map[string][]string

// Allows reports whether op is granted on channel.
func (c Capability) Allows(channel, op string) bool {
	for _, key := range []string{channel, "*"} {
		for _, o := range c[key] {
			if o == op || o == "*" {
				return true
			}
		}
	}
	return false
}

// TokenRequest is a signed grant the browser presents when opening the
// realtime websocket. The field names follow the hosted pub/sub token
// requests older clients already parse.
type TokenRequest struct {
	KeyName    string `json:"keyName"`
	ClientID   string `json:"clientId"`
	Capability string `json:"capability"`
	Timestamp  int64  `json:"timestamp"` // unix millis
	TTL        int64  `json:"ttl"`       // millis
	Nonce      string `json:"nonce"`
	MAC        string `json:"mac"`
}

// Encode returns the token as URL-safe base64 JSON for use in a query string.
func (t TokenRequest) Encode() string {
	data, _ := json.Marshal(t)
	return base64.RawURLEncoding.EncodeToString(data)
}

// TokenIssuer signs and verifies token requests with a shared key of the
// form "name:secret".
type TokenIssuer struct {
	keyName string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewTokenIssuer(signingKey string, ttl time.Duration) (*TokenIssuer, error) {
	signingKey = strings.TrimSpace(signingKey)
	if signingKey == "" {
		return nil, errors.New("realtime: signing key must not be empty")
	}
	name, secret, ok := strings.Cut(signingKey, ":")
	if !ok {
		name, secret = "lingo", signingKey
	}
	if secret == "" {
		return nil, errors.New("realtime: signing key secret is empty")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{keyName: name, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token request for clientID with the given capability.
func (ti *TokenIssuer) Issue(clientID string, capability Capability) (TokenRequest, error) {
	capJSON, err := json.Marshal(capability)
	if err != nil {
		return TokenRequest{}, fmt.Errorf("marshal capability: %w", err)
	}
	tr := TokenRequest{
		KeyName:    ti.keyName,
		ClientID:   clientID,
		Capability: string(capJSON),
		Timestamp:  ti.now().UnixMilli(),
		TTL:        ti.ttl.Milliseconds(),
		Nonce:      uuid.NewString(),
	}
	tr.MAC = ti.sign(tr)
	return tr, nil
}

// Decode parses an encoded token and verifies it. The returned capability
// is the one the token was issued with.
func (ti *TokenIssuer) Decode(encoded string) (TokenRequest, Capability, error) {
	if encoded == "" {
		return TokenRequest{}, nil, ErrMissingToken
	}
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return TokenRequest{}, nil, ErrInvalidToken
	}
	var tr TokenRequest
	if err := json.Unmarshal(data, &tr); err != nil {
		return TokenRequest{}, nil, ErrInvalidToken
	}
	capability, err := ti.Verify(tr)
	if err != nil {
		return TokenRequest{}, nil, err
	}
	return tr, capability, nil
}

// Verify checks the MAC and expiry of a token request.
func (ti *TokenIssuer) Verify(tr TokenRequest) (Capability, error) {
	if tr.KeyName != ti.keyName || tr.MAC == "" {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal([]byte(ti.sign(tr)), []byte(tr.MAC)) {
		return nil, ErrInvalidToken
	}
	issued := time.UnixMilli(tr.Timestamp)
	if ti.now().After(issued.Add(time.Duration(tr.TTL) * time.Millisecond)) {
		return nil, ErrExpiredToken
	}
	var capability Capability
	if err := json.Unmarshal([]byte(tr.Capability), &capability); err != nil {
		return nil, ErrInvalidToken
	}
	return capability, nil
}

func (ti *TokenIssuer) sign(tr TokenRequest) string {
	base := strings.Join([]string{
		tr.KeyName,
		strconv.FormatInt(tr.TTL, 10),
		tr.Capability,
		tr.ClientID,
		strconv.FormatInt(tr.Timestamp, 10),
		tr.Nonce,
	}, "\n") + "\n"
	mac := hmac.New(sha256.New, ti.secret)
	_, _ = mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
