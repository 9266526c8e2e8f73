package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Playlist is a discovered music collection with curator contact metadata.
//
// Values are treated as immutable once received from the backend.
type Playlist struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	URL          string   `json:"url,omitempty"`
	OwnerName    string   `json:"owner_name,omitempty"`
	OwnerURL     string   `json:"owner_url,omitempty"`
	Description  string   `json:"description,omitempty"`
	Email        string   `json:"email,omitempty"`
	Followers    Count    `json:"followers,omitzero"`
	TracksTotal  Count    `json:"tracks_total,omitzero"`
	FoundBy      []string `json:"found_by,omitempty"`
	Contacted    int      `json:"contacted"`
	LastModified string   `json:"last_modified,omitempty"`
}

// HasValidEmail reports whether p is contactable: its email is present and contains "@".
func HasValidEmail(p Playlist) bool {
	return p.Email != "" && strings.Contains(p.Email, "@")
}

// Contactable returns the playlists of list that have a valid email, preserving order.
func Contactable(list []Playlist) []Playlist {
	out := make([]Playlist, 0, len(list))
	for _, p := range list {
		if HasValidEmail(p) {
			out = append(out, p)
		}
	}
	return out
}

// Count is an optional numeric display field.
//
// Scraped values arrive as JSON numbers, as strings such as "1,600" or "N/A", or as null.
// The original JSON is kept so the value is forwarded to the backend unchanged.
type Count struct {
	raw json.RawMessage
}

// NewCount builds a Count holding the JSON number n.
func NewCount(n int) Count {
	return Count{raw: json.RawMessage(strconv.Itoa(n))}
}

// NewCountText builds a Count holding the JSON string s.
func NewCountText(s string) Count {
	b, _ := json.Marshal(s)
	return Count{raw: b}
}

// IsZero reports whether the value is absent.
func (c Count) IsZero() bool {
	return len(c.raw) == 0 || bytes.Equal(c.raw, []byte("null"))
}

// String renders the display text, or "" when absent.
func (c Count) String() string {
	if c.IsZero() {
		return ""
	}
	if c.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(c.raw, &s); err == nil {
			return s
		}
	}
	return string(c.raw)
}

// MarshalJSON implements [json.Marshaler].
func (c Count) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return []byte("null"), nil
	}
	return c.raw, nil
}

// UnmarshalJSON implements [json.Unmarshaler].
func (c *Count) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '"' && !bytes.Equal(trimmed, []byte("null")) {
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
	}
	c.raw = append(json.RawMessage(nil), trimmed...)
	return nil
}
