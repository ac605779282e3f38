package matching

// Explain turns already-computed dimensions into rationale sentences in a
// fixed order: skill, location, price, urgency (high urgency only), and the
// requester's reputation (rating above 4 only). It never recomputes a score.
func Explain(dims []CompatibilityDimension, requester Requester) []string {
	byName := make(map[string]CompatibilityDimension, len(dims))
	for _, d := range dims {
		byName[d.Name] = d
	}

	out := make([]string, 0, 5)
	out = append(out, explainSkill(byName[DimensionSkill]))
	out = append(out, explainLocation(byName[DimensionLocation]))
	out = append(out, explainPrice(byName[DimensionPrice]))

	if ParseUrgencyLevel(string(requester.UrgencyLevel)) == UrgencyHigh {
		out = append(out, explainUrgency(byName[DimensionUrgency]))
	}
	if rating, ok := requester.CustomerRating(); ok && rating > 4 {
		out = append(out, "The requester has an excellent reputation on the platform")
	}
	return out
}

func explainSkill(d CompatibilityDimension) string {
	switch {
	case d.Defaulted:
		return "Skill requirements are not specified"
	case d.Score > 0.8:
		return "Excellent skill match for this request"
	case d.Score > 0.5:
		return "Some skills match the requirements"
	case d.Score > 0:
		return "May require skills not listed in the profile"
	default:
		return "None of the required skills are listed in the profile"
	}
}

func explainLocation(d CompatibilityDimension) string {
	switch {
	case d.Defaulted:
		return "Location not specified, distance was not considered"
	case d.Score > 0.8:
		return "Located very close to the request"
	case d.Score > 0.5:
		return "Within a reasonable distance"
	case d.Score > 0:
		return "Located some distance away"
	default:
		return "Located outside the preferred travel distance"
	}
}

func explainPrice(d CompatibilityDimension) string {
	switch {
	case d.Defaulted:
		return "Pricing to be discussed"
	case d.Score >= 1.0:
		return "Rate fits within the budget"
	case d.Score >= 0.7:
		return "Rate range overlaps the budget"
	case d.Score >= 0.3:
		return "Rate is close to the budget"
	default:
		return "Rate is well outside the budget"
	}
}

func explainUrgency(d CompatibilityDimension) string {
	if d.Score > 0.7 {
		return "Responds quickly enough for an urgent request"
	}
	return "Urgent request; response time may be slower than needed"
}
