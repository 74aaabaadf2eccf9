package stsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/quatton/skintwin/pkg/stsdk/sterr"
)

// UserID accepts both numeric and string identifiers from the API.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

type User struct {
	ID        UserID `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// apiRenewer calls the renewal endpoint on a client that bypasses Transport.
type apiRenewer struct {
	client *resty.Client
}

func (r *apiRenewer) Renew(ctx context.Context, refresh string) (Renewal, error) {
	var out refreshResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(refreshRequest{Refresh: refresh}).
		SetResult(&out).
		Post(RefreshPath)
	if err != nil {
		return Renewal{}, transportError("refresh", err)
	}
	if resp.IsError() {
		msg, _ := decodeErrorBody(resp.Body())
		return Renewal{}, sterr.Newf(sterr.CodeRefreshFailed, "refresh rejected (status %d): %s", resp.StatusCode(), msg)
	}
	if out.Access == "" {
		return Renewal{}, sterr.New(sterr.CodeRefreshFailed, errEmptyRenewal)
	}
	return Renewal{Access: out.Access, Refresh: out.Refresh}, nil
}

// transportError classifies a failure where no response was received.
func transportError(op string, err error) error {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return sterr.New(sterr.CodeTimeout, fmt.Errorf("%s: %w", op, err))
	}
	return sterr.New(sterr.CodeNetwork, fmt.Errorf("%s: %w", op, err))
}

// problemKeys are envelope fields of error bodies, never form fields.
var problemKeys = map[string]bool{
	"error": true, "detail": true, "title": true, "status": true,
	"type": true, "instance": true, "errors": true, "$schema": true,
	"code": true, "messages": true,
}

// decodeErrorBody extracts a display message and per-field messages from
// an error response. It understands {"error": "..."}, problem+json with an
// errors list, and {"field": ["msg", ...]} maps.
func decodeErrorBody(body []byte) (string, map[string][]string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return strings.TrimSpace(string(body)), nil
	}

	var msg string
	for _, key := range []string{"error", "detail", "title"} {
		if v, ok := raw[key]; ok {
			var s string
			if json.Unmarshal(v, &s) == nil && s != "" {
				msg = s
				break
			}
		}
	}

	fields := map[string][]string{}

	if v, ok := raw["errors"]; ok {
		var details []struct {
			Location string `json:"location"`
			Message  string `json:"message"`
		}
		if json.Unmarshal(v, &details) == nil {
			for _, d := range details {
				name := strings.TrimPrefix(d.Location, "body.")
				if name == "" || name == "body" {
					name = "non_field_errors"
				}
				fields[name] = append(fields[name], d.Message)
			}
		}
	}

	for key, v := range raw {
		if problemKeys[key] {
			continue
		}
		var list []string
		if json.Unmarshal(v, &list) == nil {
			fields[key] = append(fields[key], list...)
			continue
		}
		var s string
		if json.Unmarshal(v, &s) == nil {
			fields[key] = append(fields[key], s)
		}
	}

	if msg == "" && len(fields) > 0 {
		msg = summarize(fields)
	}
	if len(fields) == 0 {
		fields = nil
	}
	return msg, fields
}

func summarize(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(fields[k], " ")))
	}
	return strings.Join(parts, "; ")
}

// isDuplicate reports whether validation messages say the identity is
// already taken.
func isDuplicate(fields map[string][]string) bool {
	for _, key := range []string{"username", "email"} {
		for _, m := range fields[key] {
			if strings.Contains(strings.ToLower(m), "exist") {
				return true
			}
		}
	}
	return false
}

func isCredentialRejection(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
