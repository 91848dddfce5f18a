package namespace

import "strings"

// ResolveNamespace determines the namespace a new memory should be stored
// under.
//
// Domain selection, in order:
//  1. If domainHint names a known domain, use it.
//  2. Otherwise score the role's candidate domains by counting keyword hits
//     in content; the highest count wins, ties break by the role's domain
//     declaration order.
//  3. With no matches, fall back to the role's first declared domain, or
//     general_knowledge for roles with none.
//
// The function is total: unknown role or type strings resolve through their
// documented defaults and never produce an error.
func ResolveNamespace(userID string, role AgentRole, memType MemoryType, content, domainHint string) Namespace {
	role = ParseRole(string(role))
	memType = ParseMemoryType(string(memType))

	domain := inferDomain(role, content, domainHint)

	return Namespace{
		UserID: userID,
		Role:   role,
		Domain: domain,
		Type:   memType,
	}
}

// inferDomain picks a domain for new content under the given role.
func inferDomain(role AgentRole, content, domainHint string) Domain {
	if domainHint != "" {
		hinted := Domain(strings.ToLower(strings.TrimSpace(domainHint)))
		if _, ok := domainKeywords[hinted]; ok {
			return hinted
		}
	}

	candidates := DomainsFor(role)
	if len(candidates) == 0 {
		return DomainGeneralKnowledge
	}

	contentLower := strings.ToLower(content)
	bestDomain := candidates[0]
	bestScore := 0
	for _, d := range candidates {
		score := 0
		for _, kw := range domainKeywords[d] {
			if strings.Contains(contentLower, kw) {
				score++
			}
		}
		// Strict greater-than keeps the first-declared domain on ties.
		if score > bestScore {
			bestScore = score
			bestDomain = d
		}
	}

	return bestDomain
}

// AccessibleNamespaces returns every namespace the requesting role may read
// for the given user, most specific first:
//
//   - the role's own domains, crossed with the requested memory types;
//   - the shared pool (general_knowledge and cross_domain under RoleShared);
//   - for roles with access level >= 3, other roles' general_knowledge and
//     cross_domain scopes, never their specialized domains.
//
// Passing no memory types requests all of them. The function is pure and
// total; unknown roles resolve to RoleGeneral's scopes.
func AccessibleNamespaces(requestingRole AgentRole, userID string, types ...MemoryType) []Namespace {
	requestingRole = ParseRole(string(requestingRole))
	if len(types) == 0 {
		types = AllMemoryTypes
	} else {
		parsed := make([]MemoryType, len(types))
		for i, t := range types {
			parsed[i] = ParseMemoryType(string(t))
		}
		types = parsed
	}

	var namespaces []Namespace

	// Own domains.
	for _, d := range DomainsFor(requestingRole) {
		for _, t := range types {
			namespaces = append(namespaces, Namespace{
				UserID: userID,
				Role:   requestingRole,
				Domain: d,
				Type:   t,
			})
		}
	}

	// Shared pool, always readable.
	if requestingRole != RoleShared {
		for _, d := range []Domain{DomainGeneralKnowledge, DomainCrossDomain} {
			for _, t := range types {
				namespaces = append(namespaces, Namespace{
					UserID: userID,
					Role:   RoleShared,
					Domain: d,
					Type:   t,
				})
			}
		}
	}

	// Cross-role general scopes for high-level roles.
	if Level(requestingRole) >= 3 {
		for _, other := range KnownRoles() {
			if other == requestingRole {
				continue
			}
			for _, d := range []Domain{DomainGeneralKnowledge, DomainCrossDomain} {
				for _, t := range types {
					namespaces = append(namespaces, Namespace{
						UserID: userID,
						Role:   other,
						Domain: d,
						Type:   t,
					})
				}
			}
		}
	}

	return namespaces
}

// CanRead reports whether the requesting role may read the given namespace.
// It is the membership test for AccessibleNamespaces.
func CanRead(requestingRole AgentRole, ns Namespace) bool {
	requestingRole = ParseRole(string(requestingRole))

	if ns.Role == requestingRole || ns.Role == RoleShared {
		return true
	}
	if Level(requestingRole) >= 3 {
		return ns.Domain == DomainGeneralKnowledge || ns.Domain == DomainCrossDomain
	}
	return false
}
