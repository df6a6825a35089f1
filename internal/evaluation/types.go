package evaluation

// Coverage counts which samples took part in ranking metrics.
type Coverage struct {
	Total      int `json:"total"`
	Qualifying int `json:"qualifying"`
	Excluded   int `json:"excluded"` // no retrieval or no references
}

// SampleResult holds one sample's ranking scores at a single cutoff.
type SampleResult struct {
	QueryID     string  `json:"query_id"`
	Qualifies   bool    `json:"qualifies"`
	K           int     `json:"k"`
	Recall      float64 `json:"recall"`
	Precision   float64 `json:"precision"`
	NDCG        float64 `json:"ndcg"`
	MRR         float64 `json:"mrr"`
	AP          float64 `json:"ap"`
	ResultCount int     `json:"result_count"`
}

// Summary aggregates ranking metrics across the qualifying samples.
type Summary struct {
	K             int     `json:"k"`
	QueryCount    int     `json:"query_count"`
	MeanRecall    float64 `json:"mean_recall"`
	MeanPrecision float64 `json:"mean_precision"`
	MeanNDCG      float64 `json:"mean_ndcg"`
	MeanMRR       float64 `json:"mean_mrr"`
	MAP           float64 `json:"map"`
}
