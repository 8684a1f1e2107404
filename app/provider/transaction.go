package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Transaction is the processor's view of a transaction, as returned by the
// REST API and echoed in webhook bodies.
type Transaction struct {
	ID          FlexString      `json:"id"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Amount      FlexInt64       `json:"amount"`
	Mode        string          `json:"mode"`
	PaymentURL  string          `json:"payment_url"`
	ApprovedAt  string          `json:"approved_at"`
	Metadata    json.RawMessage `json:"metadata"`
	Customer    *Customer       `json:"customer"`
}

type Customer struct {
	FirstName string          `json:"firstname"`
	LastName  string          `json:"lastname"`
	Email     string          `json:"email"`
	Phone     json.RawMessage `json:"phone_number,omitempty"`
}

// PhoneNumber returns the number whether the processor sent a bare string or
// a {number, country} object.
func (c *Customer) PhoneNumber() string {
	if c == nil || len(c.Phone) == 0 {
		return ""
	}
	var phone struct {
		Number FlexString `json:"number"`
	}
	if err := json.Unmarshal(c.Phone, &phone); err == nil {
		return string(phone.Number)
	}
	var raw FlexString
	if err := json.Unmarshal(c.Phone, &raw); err == nil {
		return string(raw)
	}
	return ""
}

// StringMetadata flattens the metadata object into strings. Values that are
// not scalars are dropped; a metadata field that is not an object yields nil.
func (t *Transaction) StringMetadata() map[string]string {
	if len(bytes.TrimSpace(t.Metadata)) == 0 {
		return nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(t.Metadata, &raw); err != nil || raw == nil {
		return nil
	}
	metadata := make(map[string]string, len(raw))
	for k, v := range raw {
		if s := parseStringish(v); s != "" {
			metadata[k] = s
		}
	}
	return metadata
}

// ApprovedTime parses approved_at. FedaPay sends either RFC3339 or
// "2006-01-02 15:04:05" in UTC.
func (t *Transaction) ApprovedTime() *time.Time {
	value := strings.TrimSpace(t.ApprovedAt)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

// FlexString accepts a JSON string or number.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*s = FlexString(strings.TrimSpace(value))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*s = FlexString(number.String())
	return nil
}

// FlexInt64 accepts a JSON number or a numeric string.
type FlexInt64 int64

func (n *FlexInt64) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*n = 0
		return nil
	}
	if value, err := strconv.ParseInt(string(s), 10, 64); err == nil {
		*n = FlexInt64(value)
		return nil
	}
	value, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", string(s))
	}
	*n = FlexInt64(int64(value))
	return nil
}

func parseStringish(v interface{}) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case json.Number:
		return value.String()
	default:
		return ""
	}
}
