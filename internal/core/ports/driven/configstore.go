package driven

// ConfigStore is the flat key space behind AppSettings. Keys are dotted
// section paths such as "retrieval.top_k"; how they are laid out on disk is
// up to the implementation.
//
// Typed getters return the zero value when a key is missing or holds a
// value of another type. Use Get to tell a missing key from a zero one.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int

	// GetFloat also accepts integers and numeric strings.
	GetFloat(key string) (float64, bool)
	GetBool(key string) bool

	// Set stores a value and persists it before returning.
	Set(key string, value any) error

	// Path names where the configuration lives, for display.
	Path() string
}
