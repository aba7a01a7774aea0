package models

// IsAdminParticipant reports whether a participant id belongs to
// administrative staff: the literal "admin" or a short numeric staff id.
// User NICs are long alphanumeric strings and never match.
//
// The check mirrors the sender heuristic used to route dashboard
// notifications. It collides with any user id that happens to be four or
// fewer digits; carrying an explicit role on the connection is the better
// source of truth where one is available.
func IsAdminParticipant(id string) bool {
	if id == "admin" {
		return true
	}
	if len(id) == 0 || len(id) > 4 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
