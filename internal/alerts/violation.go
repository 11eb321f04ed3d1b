package alerts

import "strings"

// ViolationType is the canonical alert type derived from raw detector output.
type ViolationType string

const (
	ViolationNoHardHat        ViolationType = "NO_HARD_HAT"
	ViolationNoProtectiveGear ViolationType = "NO_PROTECTIVE_GEAR"
	ViolationRestrictedArea   ViolationType = "RESTRICTED_AREA_ENTRY"
	ViolationUnknown          ViolationType = "UNKNOWN"
)

const restrictedAreaTitleFragment = "human in danger zone"

// Classify maps raw detection codes to a single violation type. Precedence is
// fixed: a missing hard hat outranks missing protective gear, and the
// restricted-area case only applies when no codes are present at all.
func Classify(codes []string, title string) ViolationType {
	hasCode := func(want string) bool {
		for _, code := range codes {
			if strings.EqualFold(strings.TrimSpace(code), want) {
				return true
			}
		}
		return false
	}

	switch {
	case hasCode("no_helmet"):
		return ViolationNoHardHat
	case hasCode("no_vest"):
		return ViolationNoProtectiveGear
	case len(codes) == 0 && strings.Contains(strings.ToLower(title), restrictedAreaTitleFragment):
		return ViolationRestrictedArea
	default:
		return ViolationUnknown
	}
}
