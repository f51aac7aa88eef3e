package mailer

import (
	"strings"

	"github.com/ExtMailer/ExtMailer/internal/validation"
)

// Recipients splits a comma or whitespace separated recipient list.
func Recipients(list string) []string {
	return validation.SplitList(list)
}

// ResolveRecipients applies the global rules to a recipient list:
// the emergency reroute replaces everything, then only addresses in
// AllowedDomains survive (when set), then excluded addresses or user
// names are dropped. Duplicates are removed, order is kept.
func (s *Settings) ResolveRecipients(list string) []string {
	tokens := Recipients(list)
	if reroute := Recipients(s.EmergencyReroute); len(reroute) > 0 {
		tokens = reroute
	}

	allowed := Recipients(s.AllowedDomains)
	excluded := map[string]bool{}

	for _, e := range Recipients(s.ExcludedCommitters) {
		excluded[strings.ToLower(e)] = true
	}

	seen := map[string]bool{}
	out := make([]string, 0, len(tokens))

	for _, token := range tokens {
		addr := strings.ToLower(validation.Address(token))
		local, domain, _ := strings.Cut(addr, "@")

		if len(allowed) > 0 && !domainAllowed(domain, allowed) {
			continue
		}

		if excluded[addr] || excluded[local] || seen[addr] {
			continue
		}

		seen[addr] = true
		out = append(out, token)
	}

	return out
}

// domainAllowed matches "disney.com" and "@disney.com" entries exactly.
func domainAllowed(domain string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(a, "@"), domain) {
			return true
		}
	}

	return false
}
