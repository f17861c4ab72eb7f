package phrases

import "time"

// Phrase is a prompt contributors read aloud.
type Phrase struct {
	ID          int64  `json:"id"`
	Text        string `json:"text"`
	SampleCount int64  `json:"sample_count"`
}

// Submission is one committed recording tied to a phrase and a contributor.
type Submission struct {
	ID            string    `json:"submission_id"`
	PhraseID      int64     `json:"phrase_id"`
	ContributorID string    `json:"contributor_id"`
	AudioRef      string    `json:"audio_ref"`
	StorageID     string    `json:"storage_id,omitempty"`
	Validated     bool      `json:"validated"`
	CreatedAt     time.Time `json:"created_at"`

	// PhraseSampleCount is the owning phrase's counter as observed inside the
	// commit transaction. It is not persisted on the submission row.
	PhraseSampleCount int64 `json:"-"`
}

// ExportRow is one line of the submissions report.
type ExportRow struct {
	SubmissionID  string
	PhraseText    string
	ContributorID string
	AudioRef      string
	CreatedAt     time.Time
}

// Summary aggregates catalog progress for status output.
type Summary struct {
	Phrases      int64 `json:"phrases"`
	Eligible     int64 `json:"eligible"`
	Exhausted    int64 `json:"exhausted"`
	Submissions  int64 `json:"submissions"`
	Contributors int64 `json:"contributors"`
	Quota        int64 `json:"quota"`
}
