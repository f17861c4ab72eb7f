package phrases

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"voicecollect/internal/logging"
	"voicecollect/internal/services"
)

// CommitSubmission atomically increments the owning phrase's counter and
// inserts the submission row. A missing phrase rolls the transaction back and
// returns ErrNotFound.
func (s *Store) CommitSubmission(ctx context.Context, sub Submission) (Submission, error) {
	ctx = ensureContext(ctx)
	sub.ContributorID = strings.TrimSpace(sub.ContributorID)
	if sub.ContributorID == "" {
		return Submission{}, services.Wrap(services.ErrInvalidMedia, component, "commit submission", "contributor id is empty", nil)
	}
	if strings.TrimSpace(sub.AudioRef) == "" {
		return Submission{}, services.Wrap(services.ErrInvalidMedia, component, "commit submission", "audio ref is empty", nil)
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.Validated = false

	err := s.withTx(ctx, nil, "commit submission", func(tx *sql.Tx) error {
		if err := incrementTx(ctx, tx, s.q, sub.PhraseID); err != nil {
			return err
		}
		sub.CreatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO submissions (id, phrase_id, contributor_id, audio_ref, storage_id, validated, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`),
			sub.ID, sub.PhraseID, sub.ContributorID, sub.AudioRef, nullableString(sub.StorageID), false, s.dialect.timeArg(sub.CreatedAt),
		); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, s.q("SELECT sample_count FROM phrases WHERE id = ?"), sub.PhraseID).Scan(&sub.PhraseSampleCount)
	})
	if err != nil {
		return Submission{}, err
	}
	s.logger.Debug("submission committed",
		logging.String(logging.FieldSubmissionID, sub.ID),
		logging.Int64(logging.FieldPhraseID, sub.PhraseID),
		logging.Int64("sample_count", sub.PhraseSampleCount),
	)
	return sub, nil
}

// ContributorCount returns the number of committed submissions for contributorID.
func (s *Store) ContributorCount(ctx context.Context, contributorID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ensureContext(ctx),
		s.q("SELECT COUNT(1) FROM submissions WHERE contributor_id = ?"),
		strings.TrimSpace(contributorID),
	).Scan(&count)
	if err != nil {
		return 0, s.classify("contributor count", err)
	}
	return count, nil
}

// EachExportRow streams every submission joined with its phrase text in
// commit order. Iteration stops at the first error fn returns.
func (s *Store) EachExportRow(ctx context.Context, fn func(ExportRow) error) error {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, p.text, s.contributor_id, s.audio_ref, s.created_at
		FROM submissions s
		JOIN phrases p ON p.id = s.phrase_id
		ORDER BY s.created_at, s.id`)
	if err != nil {
		return s.classify("export rows", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row       ExportRow
			createdAt any
		)
		if err := rows.Scan(&row.SubmissionID, &row.PhraseText, &row.ContributorID, &row.AudioRef, &createdAt); err != nil {
			return s.classify("export rows", err)
		}
		if row.CreatedAt, err = asTime(createdAt); err != nil {
			return s.classify("export rows", err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return s.classify("export rows", err)
	}
	return nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
