package models

// SearchHit is a single ranked match. Distance is 1 - cosine similarity,
// so lower is closer.
type SearchHit struct {
	ID       string                 `json:"id"`
	Distance float64                `json:"distance"`
	Metadata map[string]interface{} `json:"metadata"`
	Document string                 `json:"document"`
}

// PreferenceTriple is a (prompt, chosen, rejected) example derived from lineage.
// Chosen is the human edit, Rejected its direct parent, Prompt the raw root.
type PreferenceTriple struct {
	Prompt   string `json:"prompt"`
	Chosen   string `json:"chosen"`
	Rejected string `json:"rejected"`
}
