package parser

// EstimateTokens approximates the token count of text as ceil(len/4). Real
// tokenization varies by model; this is close enough for usage estimates.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
