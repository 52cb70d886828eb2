package match

import "strings"

// StatusFromProviderCode maps the provider's short status code.
func StatusFromProviderCode(code string) Status {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "1H", "HT", "2H", "ET", "BT", "P", "SUSP", "INT", "LIVE":
		return StatusLive
	case "FT", "AET", "PEN":
		return StatusFinished
	case "PST", "CANC", "ABD", "AWD", "WO":
		return StatusPostponed
	default:
		return StatusUpcoming
	}
}

var localStatusAliases = map[Status][]string{
	StatusUpcoming:  {"upcoming", "scheduled", "not started", "ns", "tbd"},
	StatusLive:      {"live", "in play", "in_play", "1h", "ht", "2h", "et"},
	StatusFinished:  {"finished", "ft", "ended", "aet", "pen"},
	StatusPostponed: {"postponed", "cancelled", "canceled", "abandoned"},
}

// ParseLocalStatus maps the free-form status text written by editors.
// Unknown values are treated as upcoming.
func ParseLocalStatus(value string) Status {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for status, aliases := range localStatusAliases {
		for _, alias := range aliases {
			if normalized == alias {
				return status
			}
		}
	}
	return StatusUpcoming
}

// LocalStatusAliases lists the lowercase status texts that parse to status.
func LocalStatusAliases(statuses ...Status) []string {
	out := make([]string, 0, len(statuses)*4)
	for _, status := range statuses {
		out = append(out, localStatusAliases[status]...)
	}
	return out
}
