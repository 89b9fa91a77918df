package profile

import "fmt"

// Status is the outcome class of an evaluation.
type Status string

const (
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

// Evaluation is the result of checking a route's surfaces against a profile.
type Evaluation struct {
	Status  Status
	Profile string
	Message string

	// Suitable is nil when there is no surface data to decide on.
	Suitable *bool

	// Set for StatusWarning.
	UnknownSegments int
	TotalSegments   int

	// Set for StatusError: disallowed surfaces, first appearance order.
	NotAllowed []string

	// Surfaces lists distinct surfaces in first-appearance order.
	// StatusError: every surface on the route, "unknown" included.
	// StatusSuccess: only the allowed surfaces; "unknown" segments are left
	// out even when the route has some.
	Surfaces []string
}

// Evaluate classifies an ordered surface sequence against p.
//
// A route whose surfaces are all "unknown" (or that has no segments) is a
// warning. Any known surface missing from the allow-list makes it an error.
// Otherwise it is a success.
func Evaluate(surfaces []string, p Profile) Evaluation {
	unknown := 0
	var distinct, known, notAllowed []string
	seen := make(map[string]bool, len(surfaces))
	for _, s := range surfaces {
		if s == Unknown {
			unknown++
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		distinct = append(distinct, s)
		if s == Unknown {
			continue
		}
		known = append(known, s)
		if !p.Allows(s) {
			notAllowed = append(notAllowed, s)
		}
	}

	switch {
	case len(known) == 0:
		return Evaluation{
			Status:          StatusWarning,
			Profile:         p.Name,
			Message:         "Route may be unsuitable: no surface data.",
			UnknownSegments: unknown,
			TotalSegments:   len(surfaces),
		}
	case len(notAllowed) > 0:
		return Evaluation{
			Status:     StatusError,
			Profile:    p.Name,
			Message:    fmt.Sprintf("Route is not suitable for bike type: %s", p.Name),
			Suitable:   boolPtr(false),
			NotAllowed: notAllowed,
			Surfaces:   distinct,
		}
	default:
		return Evaluation{
			Status:   StatusSuccess,
			Profile:  p.Name,
			Message:  fmt.Sprintf("Route is suitable for bike type: %s", p.Name),
			Suitable: boolPtr(true),
			Surfaces: known,
		}
	}
}

func boolPtr(b bool) *bool { return &b }

// Properties renders the evaluation as plain values for GeoJSON or JSON
// output.
func (e Evaluation) Properties() map[string]any {
	var suitable any
	if e.Suitable != nil {
		suitable = *e.Suitable
	}
	props := map[string]any{
		"suitable":             suitable,
		"status":               string(e.Status),
		"message":              e.Message,
		"profile":              e.Profile,
		"not_allowed_surfaces": stringsOrEmpty(e.NotAllowed),
		"all_surfaces":         stringsOrEmpty(e.Surfaces),
	}
	if e.Status == StatusWarning {
		props["unknown_segments"] = e.UnknownSegments
		props["total_segments"] = e.TotalSegments
	}
	return props
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
