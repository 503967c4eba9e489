package domain

import "fmt"

// Status is the presence state recorded by an entry
type Status int

const (
	StatusConnected Status = iota
	StatusNotConnected
)

// Persisted lookup values, kept identical to the history written by earlier versions
const (
	statusConnectedValue    = "connected"
	statusNotConnectedValue = "not connected"
)

// String returns the value stored in the status lookup table
func (s Status) String() string {
	switch s {
	case StatusConnected:
		return statusConnectedValue
	case StatusNotConnected:
		return statusNotConnectedValue
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus maps a stored lookup value back to a Status
func ParseStatus(value string) (Status, error) {
	switch value {
	case statusConnectedValue:
		return StatusConnected, nil
	case statusNotConnectedValue:
		return StatusNotConnected, nil
	default:
		return 0, fmt.Errorf("unknown status %q", value)
	}
}

// StatusRecord is the persisted lookup row for a Status
type StatusRecord struct {
	ID     int64  `json:"id"`
	Status Status `json:"status"`
}

// MarshalText encodes the status as its stored value
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusConnected, StatusNotConnected:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
}

// UnmarshalText decodes a stored status value
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
