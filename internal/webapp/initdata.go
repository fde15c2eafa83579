package webapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// InitData is the authenticated payload Telegram passes to a Mini App.
type InitData struct {
	User     UserInfo
	AuthDate string
	QueryID  string
}

type UserInfo struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

var (
	ErrInvalidInitData = errors.New("invalid init data")
	ErrBadSignature    = errors.New("init data signature mismatch")
)

// Validate checks the HMAC signature of a raw initData query string
// against the bot token and returns the decoded payload.
//
// The secret key is HMAC-SHA256 of the bot token keyed with the literal
// string "WebAppData"; the signed message is every field except hash,
// sorted by key and joined with newlines.
func Validate(raw, botToken string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInitData, err.Error())
	}
	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, errors.Wrap(ErrInvalidInitData, "missing hash")
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	sum := hmac.New(sha256.New, secret.Sum(nil))
	sum.Write([]byte(checkString))
	expected := hex.EncodeToString(sum.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(gotHash)) {
		return nil, ErrBadSignature
	}

	data := &InitData{
		AuthDate: values.Get("auth_date"),
		QueryID:  values.Get("query_id"),
	}
	if rawUser := values.Get("user"); rawUser != "" {
		if err := json.Unmarshal([]byte(rawUser), &data.User); err != nil {
			return nil, errors.Wrap(ErrInvalidInitData, err.Error())
		}
	}
	if data.User.ID == 0 {
		return nil, errors.Wrap(ErrInvalidInitData, "missing user")
	}
	return data, nil
}
