package types

import (
	"encoding/json"
	"fmt"
)

// LunarPhase is the structured lunar phase computed at entry-save time.
type LunarPhase struct {
	Name         string  `json:"name"`
	Emoji        string  `json:"emoji"`
	Illumination int     `json:"illumination"` // percent, 0..100
	AgeDays      float64 `json:"age_days"`
}

// Display renders the phase the way dashboards show it, e.g.
// "🌕 Full Moon (100% illuminated)".
func (p LunarPhase) Display() string {
	return fmt.Sprintf("%s %s (%d%% illuminated)", p.Emoji, p.Name, p.Illumination)
}

// MoonPhase is the persisted moon_phase value. Historical rows stored a
// pre-formatted display string; newer rows store the structured LunarPhase
// object. Both decode transparently and Display() normalizes either form.
type MoonPhase struct {
	Structured *LunarPhase
	Legacy     string
}

// NewMoonPhase wraps a structured phase for persistence.
func NewMoonPhase(p LunarPhase) *MoonPhase {
	return &MoonPhase{Structured: &p}
}

// Display returns the normalized display string for either representation.
// Returns "" for an empty value.
func (m *MoonPhase) Display() string {
	if m == nil {
		return ""
	}
	if m.Structured != nil {
		return m.Structured.Display()
	}
	return m.Legacy
}

// MarshalJSON writes the structured form when present, otherwise the legacy
// string. An empty value marshals as null.
func (m MoonPhase) MarshalJSON() ([]byte, error) {
	if m.Structured != nil {
		return json.Marshal(m.Structured)
	}
	if m.Legacy != "" {
		return json.Marshal(m.Legacy)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts either a structured phase object or a legacy
// pre-formatted string.
func (m *MoonPhase) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = MoonPhase{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = MoonPhase{Legacy: s}
		return nil
	}
	var p LunarPhase
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = MoonPhase{Structured: &p}
	return nil
}
