package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ID is an opaque resource identifier. The backend sends some ids as
// strings and some as numbers; both decode into the same value.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int reports the id as an integer when it is numeric.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// User is a console account.
type User struct {
	ID        ID        `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username"`
	Email     string    `json:"email,omitempty" yaml:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Role      string    `json:"role" yaml:"role"`
	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

func (u User) EntityID() ID { return u.ID }

// UserInput is the create/update payload for users.
type UserInput struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
	Password string `json:"password,omitempty"`
	Active   *bool  `json:"active,omitempty"`
}

// Ward is a hospital ward.
type Ward struct {
	ID          ID     `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Department  string `json:"department,omitempty" yaml:"department,omitempty"`
	Floor       int    `json:"floor,omitempty" yaml:"floor,omitempty"`
	Capacity    int    `json:"capacity" yaml:"capacity"`
	Occupied    int    `json:"occupied" yaml:"occupied"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (w Ward) EntityID() ID { return w.ID }

// WardInput is the create/update payload for wards.
type WardInput struct {
	Name        string `json:"name,omitempty"`
	Department  string `json:"department,omitempty"`
	Floor       *int   `json:"floor,omitempty"`
	Capacity    *int   `json:"capacity,omitempty"`
	Description string `json:"description,omitempty"`
}

// Bed statuses used by the backend.
const (
	BedAvailable   = "available"
	BedOccupied    = "occupied"
	BedMaintenance = "maintenance"
)

// Bed is a bed within a ward.
type Bed struct {
	ID          ID     `json:"id" yaml:"id"`
	Number      string `json:"bed_number" yaml:"bed_number"`
	WardID      ID     `json:"ward_id" yaml:"ward_id"`
	Status      string `json:"status" yaml:"status"`
	PatientName string `json:"patient_name,omitempty" yaml:"patient_name,omitempty"`
}

func (b Bed) EntityID() ID { return b.ID }

// BedInput is the create/update payload for beds.
type BedInput struct {
	Number      string  `json:"bed_number,omitempty"`
	WardID      ID      `json:"ward_id,omitempty"`
	Status      string  `json:"status,omitempty"`
	PatientName *string `json:"patient_name,omitempty"`
}

// BedFilter narrows ListBeds.
type BedFilter struct {
	WardID ID
	Status string
}

// SystemLog is an audit/system log entry.
type SystemLog struct {
	ID        ID        `json:"id" yaml:"id"`
	Level     string    `json:"level" yaml:"level"`
	Message   string    `json:"message" yaml:"message"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	UserID    ID        `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func (l SystemLog) EntityID() ID { return l.ID }

// LogFilter narrows ListLogs.
type LogFilter struct {
	Level string
	Limit int
}

// SendMessageRequest is the body of POST /api/chatbot/message.
type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// SendMessageResult is the decoded send response. Raw keeps the full body
// so the history can be normalized whatever shape it arrives in.
type SendMessageResult struct {
	SessionID ID              `json:"session_id"`
	Response  string          `json:"response"`
	Raw       json.RawMessage `json:"-"`
}

// HealthResponse from GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
