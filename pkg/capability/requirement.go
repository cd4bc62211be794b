package capability

import (
	"context"
	"fmt"
)

// Requirement is a condition on one capability.
type Requirement struct {
	capability Capability
	present    bool
}

// RequirePresent is satisfied when c is present.
func RequirePresent(c Capability) Requirement {
	return Requirement{capability: c, present: true}
}

// RequireAbsent is satisfied when c is absent.
func RequireAbsent(c Capability) Requirement {
	return Requirement{capability: c, present: false}
}

func (req Requirement) String() string {
	if req.present {
		return fmt.Sprintf("requires %s", req.capability)
	}
	return fmt.Sprintf("requires no %s", req.capability)
}

// Satisfies returns true if every requirement holds. Otherwise it returns
// false and the reason of the first unmet requirement.
func (r *Registry) Satisfies(ctx context.Context, reqs ...Requirement) (bool, string) {
	for _, req := range reqs {
		ok, err := r.ContainsE(ctx, req.capability)
		if err != nil {
			return false, fmt.Sprintf("capability %s could not be resolved: %v", req.capability, err)
		}
		if ok != req.present {
			if req.present {
				return false, fmt.Sprintf("capability %s is not present", req.capability)
			}
			return false, fmt.Sprintf("capability %s is present", req.capability)
		}
	}
	return true, ""
}
