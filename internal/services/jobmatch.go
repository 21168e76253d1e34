package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"pdf-rag/internal/ai"
	"pdf-rag/internal/apperr"
	"pdf-rag/internal/middleware"
	"pdf-rag/internal/models"
	"pdf-rag/internal/vector"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// jobEmbedChars caps the description text fed into the per-job
	// embedding; jobDisplayChars caps the description returned to clients.
	jobEmbedChars   = 2000
	jobDisplayChars = 500

	// resumeExcerptChars caps the resume text shown to the LLM for title
	// extraction.
	resumeExcerptChars = 3000

	titleMaxTokens   = 20
	titleTemperature = 0.1

	// fallbackSearchTerm replaces degenerate extraction output (empty, or
	// suspiciously long for a job title).
	fallbackSearchTerm = "general"
	maxSearchTermLen   = 50

	digestLocation      = "Remote"
	digestResultsWanted = 10
)

const titlePromptTemplate = `Based on this CV/resume content, what is the most relevant job title this person should search for?
Return ONLY the job title (2-4 words max), nothing else. For example: "Software Engineer" or "Data Analyst" or "Product Manager" or "Marketing Specialist".

CV Content:
%s

Job title:`

// JobMatchService ranks live job postings against a stored resume embedding
// by cosine similarity.
type JobMatchService struct {
	embedder  Embedder
	completer Completer
	docStore  DocumentStore
	searcher  JobSearcher
}

// NewJobMatchService creates a new job-match service
func NewJobMatchService(embedder Embedder, completer Completer, docStore DocumentStore, searcher JobSearcher) *JobMatchService {
	return &JobMatchService{
		embedder:  embedder,
		completer: completer,
		docStore:  docStore,
		searcher:  searcher,
	}
}

// MatchJobs finds postings matching the given resume document.
//
// The document must already have an embedding; right after upload there is a
// window where it does not, and the caller gets a NotFoundError until the
// lifecycle worker finishes.
func (s *JobMatchService) MatchJobs(ctx context.Context, documentID, location string, resultsWanted int, isRemote bool) (*models.JobMatchResult, error) {
	ctx, span := middleware.StartSpan(ctx, "JobMatch.MatchJobs",
		attribute.String("document_id", documentID),
		attribute.String("location", location),
		attribute.Int("results_wanted", resultsWanted),
	)
	defer span.End()

	doc, err := s.docStore.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.HasEmbedding() || doc.Content == nil {
		return nil, apperr.NotFound("embedded document", documentID)
	}

	return s.matchForDocument(ctx, doc, location, resultsWanted, isRemote)
}

func (s *JobMatchService) matchForDocument(ctx context.Context, doc *models.Document, location string, resultsWanted int, isRemote bool) (*models.JobMatchResult, error) {
	searchTerm := s.extractSearchTerm(ctx, *doc.Content)

	result, err := s.searcher.Search(ctx, searchTerm, location, resultsWanted, isRemote)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	// An empty market is a valid answer, not an error.
	if result.Count == 0 {
		return &models.JobMatchResult{
			Query:            searchTerm,
			TotalJobsFetched: 0,
			Matches:          []models.JobMatch{},
		}, nil
	}

	resumeVec := doc.Embedding.Slice()

	matches := make([]models.JobMatch, 0, len(result.Jobs))
	for _, job := range result.Jobs {
		jobText := fmt.Sprintf("%s at %s. %s", job.Title, job.Company, truncate(job.Description, jobEmbedChars))

		jobVec, err := s.embedder.Embed(ctx, jobText, ai.InputSearchDocument)
		if err != nil {
			// Partial-failure tolerant fan-out: one bad posting must not
			// abort the batch.
			log.Printf("job match: skipping job %s: %v", job.ID, err)
			continue
		}

		jobURL := job.JobURL
		if jobURL == "" {
			jobURL = job.JobURLDirect
		}

		matches = append(matches, models.JobMatch{
			ID:              job.ID,
			Title:           job.Title,
			Company:         job.Company,
			Location:        job.Location,
			JobURL:          jobURL,
			Description:     truncate(job.Description, jobDisplayChars) + "...",
			SalaryMin:       job.MinAmount,
			SalaryMax:       job.MaxAmount,
			SimilarityScore: vector.Round4(vector.Cosine(resumeVec, jobVec)),
		})
	}

	// Highest similarity first; insertion order breaks ties.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})

	middleware.AddSpanEvent(ctx, "jobs_ranked",
		attribute.Int("fetched", result.Count),
		attribute.Int("ranked", len(matches)),
	)

	return &models.JobMatchResult{
		Query:            searchTerm,
		TotalJobsFetched: result.Count,
		Matches:          matches,
	}, nil
}

// extractSearchTerm derives a short job title from the resume text. Any
// extraction failure degrades to the generic fallback term - a match run
// never dies on this step.
func (s *JobMatchService) extractSearchTerm(ctx context.Context, resumeText string) string {
	prompt := fmt.Sprintf(titlePromptTemplate, truncate(resumeText, resumeExcerptChars))

	raw, _, err := s.completer.Complete(ctx, []ai.Message{
		{Role: "user", Content: prompt},
	}, titleMaxTokens, titleTemperature)
	if err != nil {
		log.Printf("job match: title extraction failed: %v", err)
		return fallbackSearchTerm
	}

	return cleanSearchTerm(raw)
}

// cleanSearchTerm applies deterministic cleanup to raw LLM output: first
// line only, quotes stripped, preamble phrases cut at their last colon, and
// a fallback for empty or overlong results.
func cleanSearchTerm(raw string) string {
	line := raw
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	line = strings.Trim(line, `"'`)
	line = strings.TrimSpace(line)

	lower := strings.ToLower(line)
	if strings.HasPrefix(lower, "based on") || strings.HasPrefix(lower, "the ") || strings.HasPrefix(lower, "a ") {
		if idx := strings.LastIndex(line, ":"); idx >= 0 {
			line = strings.TrimSpace(line[idx+1:])
		}
	}

	if line == "" || len(line) >= maxSearchTermLen {
		return fallbackSearchTerm
	}
	return line
}

// DigestEntry is one user's result in a weekly digest run.
type DigestEntry struct {
	UserID     string  `json:"user_id"`
	DocumentID string  `json:"document_id"`
	Query      string  `json:"query"`
	MatchCount int     `json:"match_count"`
	TopScore   float64 `json:"top_score"`
}

// DigestReport summarizes a digest run.
type DigestReport struct {
	UsersProcessed int           `json:"users_processed"`
	UsersFailed    int           `json:"users_failed"`
	Entries        []DigestEntry `json:"entries"`
}

// WeeklyDigest runs the match pipeline once per user that has at least one
// embedded document, using each user's most recent one. Per-user failures
// are logged and skipped so one user's broken run never blocks the rest.
func (s *JobMatchService) WeeklyDigest(ctx context.Context) (*DigestReport, error) {
	ctx, span := middleware.StartSpan(ctx, "JobMatch.WeeklyDigest")
	defer span.End()

	docs, err := s.docStore.LatestEmbeddedPerUser(ctx)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	report := &DigestReport{Entries: []DigestEntry{}}

	for _, doc := range docs {
		if !doc.HasEmbedding() || doc.Content == nil {
			continue
		}

		result, err := s.matchForDocument(ctx, doc, digestLocation, digestResultsWanted, true)
		if err != nil {
			log.Printf("weekly digest: user %s failed: %v", doc.UserID, err)
			report.UsersFailed++
			continue
		}

		entry := DigestEntry{
			UserID:     doc.UserID,
			DocumentID: doc.ID,
			Query:      result.Query,
			MatchCount: len(result.Matches),
		}
		if len(result.Matches) > 0 {
			entry.TopScore = result.Matches[0].SimilarityScore
		}

		report.UsersProcessed++
		report.Entries = append(report.Entries, entry)
	}

	middleware.AddSpanEvent(ctx, "digest_completed",
		attribute.Int("users_processed", report.UsersProcessed),
		attribute.Int("users_failed", report.UsersFailed),
	)

	return report, nil
}

// truncate limits s to max bytes without appending anything, backing up so
// the cut never splits a multi-byte UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
