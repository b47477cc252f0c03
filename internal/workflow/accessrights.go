package workflow

// Access-rights codes accepted by the catalog.
const (
	AccessRightsPublic      = "PUBLIC"
	AccessRightsRestricted  = "RESTRICTED"
	AccessRightsNonPublic   = "NON_PUBLIC"
	AccessRightsConditional = "CONDITIONAL"
)

// AccessRightsOptions lists the selectable codes in display order.
func AccessRightsOptions() []string {
	return []string{
		AccessRightsPublic,
		AccessRightsRestricted,
		AccessRightsNonPublic,
		AccessRightsConditional,
	}
}

// ValidAccessRights reports whether code is a known access-rights value.
func ValidAccessRights(code string) bool {
	for _, option := range AccessRightsOptions() {
		if code == option {
			return true
		}
	}
	return false
}
