package types

import "log/slog"

// secretMask replaces secret values anywhere they would be rendered.
const secretMask = "***REDACTED***"

// SecretString holds a sensitive value (the database URL, the OpenWeather
// API key) and masks it on every rendering path: fmt verbs, JSON encoding,
// and slog attributes all see the mask. Only Unmask returns the plaintext,
// so the places a secret actually leaves the process stay greppable.
type SecretString string

func (s SecretString) String() string {
	return secretMask
}

func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + secretMask + `"`), nil
}

// LogValue masks the secret in structured log output.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(secretMask)
}

// IsSet reports whether a value is present without exposing it. Providers
// use it to decide between the live upstream and simulated data.
func (s SecretString) IsSet() bool {
	return s != ""
}

// Unmask returns the plaintext. Callers are the pgx connection string and
// the outbound API query; nothing else should need it.
func (s SecretString) Unmask() string {
	return string(s)
}
