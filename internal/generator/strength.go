package generator

// Strength is a coarse rating shown next to a generated password
type Strength struct {
	Score int    `json:"score"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// ScoreStrength rates a password from 0 to 100 by length, class variety
// and the share of distinct characters.
func ScoreStrength(password string) Strength {
	runes := []rune(password)

	score := 0
	switch {
	case len(runes) >= 12:
		score += 25
	case len(runes) >= 8:
		score += 15
	default:
		score += 5
	}

	upper, lower, digits, other := CountClasses(password)
	if upper > 0 {
		score += 15
	}
	if lower > 0 {
		score += 15
	}
	if digits > 0 {
		score += 15
	}
	if other > 0 {
		score += 20
	}

	unique := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		unique[r] = struct{}{}
	}

	if len(runes) > 0 {
		score += len(unique) * 10 / len(runes)
	}

	if score > 100 {
		score = 100
	}

	return Strength{Score: score, Label: strengthLabel(score), Color: strengthColor(score)}
}

func strengthLabel(score int) string {
	switch {
	case score >= 80:
		return "Very Strong"
	case score >= 60:
		return "Strong"
	case score >= 40:
		return "Medium"
	case score >= 20:
		return "Weak"
	default:
		return "Very Weak"
	}
}

func strengthColor(score int) string {
	switch {
	case score >= 80:
		return "#28a745"
	case score >= 60:
		return "#17a2b8"
	case score >= 40:
		return "#ffc107"
	case score >= 20:
		return "#fd7e14"
	default:
		return "#dc3545"
	}
}

// CountClasses tallies how many characters of password fall in each of the
// generator's classes. Anything outside A-Z, a-z and 0-9 counts as other.
func CountClasses(password string) (upper, lower, digits, other int) {
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper++
		case r >= 'a' && r <= 'z':
			lower++
		case r >= '0' && r <= '9':
			digits++
		default:
			other++
		}
	}
	return upper, lower, digits, other
}
