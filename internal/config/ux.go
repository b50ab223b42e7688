package config

// UIConfig holds terminal rendering configuration.
type UIConfig struct {
	// Theme selects the banner palette: "dark" or "light"
	Theme string `yaml:"theme" json:"theme,omitempty"`

	// Markdown renders command references through glamour; false prints plain text
	Markdown bool `yaml:"markdown" json:"markdown"`

	// Width is the word-wrap width for rendered references
	Width int `yaml:"width" json:"width,omitempty"`
}

// IsLight reports whether the light palette was requested.
func (u UIConfig) IsLight() bool {
	return u.Theme == "light"
}
