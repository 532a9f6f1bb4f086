package model

// ThemePreference is the color mode a user selected.
type ThemePreference string

const (
	ThemeLight  ThemePreference = "light"
	ThemeDark   ThemePreference = "dark"
	ThemeSystem ThemePreference = "system"
)

// Valid reports whether p is one of the three accepted values.
func (p ThemePreference) Valid() bool {
	switch p {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}
