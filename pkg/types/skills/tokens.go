package skills

import "unicode"

// baseTokenCost is the fixed framing cost of one skill line in the index.
const baseTokenCost = 20

// TokenCost estimates the prompt tokens a skill's index line consumes.
func TokenCost(meta SkillMetadata) int {
	return baseTokenCost + EstimateTokens(meta.Name+meta.Description)
}

// EstimateTokens weights Han characters at 2 tokens and every other rune at
// 0.3 tokens, truncating the sum.
func EstimateTokens(s string) int {
	var han, other int
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			han++
		} else {
			other++
		}
	}
	return int(float64(han)*2 + float64(other)*0.3)
}
