package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

// SignatureHeader carries hex(HMAC-SHA256(secret, body)) on gateway callbacks.
const SignatureHeader = "X-Gateway-Signature"

// DefaultFailReason is recorded when the gateway declines without saying why.
const DefaultFailReason = "declined by gateway"

const callbackSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["reference", "status"],
	"additionalProperties": false,
	"properties": {
		"reference": {"type": "string", "minLength": 1, "maxLength": 128},
		"status": {"type": "string", "enum": ["SUCCESS", "FAILED"]},
		"reason": {"type": "string", "maxLength": 500},
		"event_id": {"type": "string"}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(callbackSchema)

type Callback struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	EventID   string `json:"event_id,omitempty"`
}

func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time. An empty secret never verifies.
func Verify(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// ParseCallback validates body against the callback schema before decoding it.
func ParseCallback(body []byte) (*Callback, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed callback: %v", domain.ErrInvalidArgument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, strings.Join(msgs, "; "))
	}

	var cb Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return &cb, nil
}
