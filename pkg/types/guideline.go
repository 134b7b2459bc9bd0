package types

import "strings"

// Guideline is a clinical practice guideline reference
type Guideline struct {
	ID     string `json:"guidelineId"`
	Topic  string `json:"topic"`
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
	URL    string `json:"url,omitempty"`
}

// MatchesTopic reports whether the guideline topic contains query, ignoring case
func (g Guideline) MatchesTopic(query string) bool {
	return strings.Contains(strings.ToLower(g.Topic), strings.ToLower(query))
}
