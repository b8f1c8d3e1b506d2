package core

var presencePalette = []string{"#e63946", "#2a9d8f", "#457b9d", "#f4a261", "#6d6875", "#1d3557"}

// PresenceColor picks a stable cursor colour for a user id.
func PresenceColor(userID string) string {
	hash := 0
	for _, r := range userID {
		hash = (hash*31 + int(r)) % len(presencePalette)
	}
	if hash < 0 {
		hash = -hash
	}
	return presencePalette[hash]
}
