package models

// JobPosting is one raw posting from the external job-search service.
// Postings live only for the duration of one match request; they are never
// persisted.
type JobPosting struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	JobURL       string   `json:"jobUrl"`
	JobURLDirect string   `json:"jobUrlDirect"`
	Description  string   `json:"description"`
	MinAmount    *float64 `json:"minAmount"`
	MaxAmount    *float64 `json:"maxAmount"`
}

// JobMatch is a posting scored against a resume embedding.
type JobMatch struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	JobURL          string   `json:"job_url"`
	Description     string   `json:"description"`
	SalaryMin       *float64 `json:"salary_min"`
	SalaryMax       *float64 `json:"salary_max"`
	SimilarityScore float64  `json:"similarity_score"`
}

// JobMatchResult is the outcome of one match run.
type JobMatchResult struct {
	Query            string     `json:"query"`
	TotalJobsFetched int        `json:"total_jobs_fetched"`
	Matches          []JobMatch `json:"matches"`
}

// JobSearchResult is the external search service's response.
type JobSearchResult struct {
	Count int          `json:"count"`
	Jobs  []JobPosting `json:"jobs"`
}
