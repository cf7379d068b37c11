package logger

import "strings"

// RedactEmail keeps the first two characters of the local part and the
// whole domain: "marie.dupont@pyrowave.com" becomes "ma***@pyrowave.com".
// Local parts of two characters or fewer are masked entirely.
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***@***"
	}
	local, domain := email[:at], email[at+1:]
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}
