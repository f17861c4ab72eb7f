package phrases

import "context"

// Repository is the persistence contract used by the recorder, the HTTP API,
// the importer and the export reporter.
type Repository interface {
	// NextAvailablePhrase returns a phrase below quota chosen uniformly at
	// random, or nil when none is eligible.
	NextAvailablePhrase(ctx context.Context) (*Phrase, error)
	IncrementSampleCount(ctx context.Context, phraseID int64) error
	// CommitSubmission increments the phrase counter and inserts the
	// submission as one transaction.
	CommitSubmission(ctx context.Context, sub Submission) (Submission, error)
	ContributorCount(ctx context.Context, contributorID string) (int64, error)
	EachExportRow(ctx context.Context, fn func(ExportRow) error) error
	InsertPhrase(ctx context.Context, text string) (Phrase, bool, error)
	PhraseCount(ctx context.Context) (int64, error)
	Summary(ctx context.Context) (Summary, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ Repository = (*Store)(nil)
