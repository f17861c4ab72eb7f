package phrases

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"voicecollect/internal/logging"
	"voicecollect/internal/services"
)

// NextAvailablePhrase counts the eligible phrases and picks one by random
// offset inside a single read snapshot. It returns nil, nil when every phrase
// has reached the quota.
func (s *Store) NextAvailablePhrase(ctx context.Context) (*Phrase, error) {
	ctx = ensureContext(ctx)
	var picked *Phrase
	err := s.withTx(ctx, s.dialect.readTx, "next phrase", func(tx *sql.Tx) error {
		picked = nil
		var eligible int64
		if err := tx.QueryRowContext(ctx, s.q("SELECT COUNT(1) FROM phrases WHERE sample_count < ?"), s.quota).Scan(&eligible); err != nil {
			return err
		}
		if eligible == 0 {
			return nil
		}
		offset := s.random(eligible)
		if offset < 0 || offset >= eligible {
			offset = 0
		}
		var p Phrase
		err := tx.QueryRowContext(ctx,
			s.q("SELECT id, text, sample_count FROM phrases WHERE sample_count < ? ORDER BY id LIMIT 1 OFFSET ?"),
			s.quota, offset,
		).Scan(&p.ID, &p.Text, &p.SampleCount)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		picked = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return picked, nil
}

// IncrementSampleCount adds exactly one to the phrase counter.
func (s *Store) IncrementSampleCount(ctx context.Context, phraseID int64) error {
	return s.withTx(ctx, nil, "increment sample count", func(tx *sql.Tx) error {
		return incrementTx(ensureContext(ctx), tx, s.q, phraseID)
	})
}

func incrementTx(ctx context.Context, tx *sql.Tx, q func(string) string, phraseID int64) error {
	res, err := tx.ExecContext(ctx, q("UPDATE phrases SET sample_count = sample_count + 1 WHERE id = ?"), phraseID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, component, "increment sample count",
			"phrase "+formatID(phraseID)+" does not exist", nil)
	}
	return nil
}

// ErrEmptyPhrase rejects catalog input with no text after trimming.
var ErrEmptyPhrase = errors.New("phrase text is empty")

// InsertPhrase adds text to the catalog unless an identical phrase already
// exists. The boolean reports whether a row was created.
func (s *Store) InsertPhrase(ctx context.Context, text string) (Phrase, bool, error) {
	ctx = ensureContext(ctx)
	text = strings.TrimSpace(text)
	if text == "" {
		return Phrase{}, false, ErrEmptyPhrase
	}
	var (
		phrase  Phrase
		created bool
	)
	err := s.withTx(ctx, nil, "insert phrase", func(tx *sql.Tx) error {
		created = false
		err := tx.QueryRowContext(ctx, s.q("SELECT id, text, sample_count FROM phrases WHERE text = ? ORDER BY id LIMIT 1"), text).
			Scan(&phrase.ID, &phrase.Text, &phrase.SampleCount)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		phrase = Phrase{Text: text}
		if err := tx.QueryRowContext(ctx, s.q("INSERT INTO phrases (text, sample_count) VALUES (?, 0) RETURNING id"), text).Scan(&phrase.ID); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return Phrase{}, false, err
	}
	if created {
		s.logger.Debug("phrase inserted", logging.Int64(logging.FieldPhraseID, phrase.ID))
	}
	return phrase, created, nil
}

// GetPhrase loads one phrase by id.
func (s *Store) GetPhrase(ctx context.Context, id int64) (*Phrase, error) {
	ctx = ensureContext(ctx)
	var p Phrase
	err := s.db.QueryRowContext(ctx, s.q("SELECT id, text, sample_count FROM phrases WHERE id = ?"), id).Scan(&p.ID, &p.Text, &p.SampleCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, component, "get phrase", "phrase "+formatID(id)+" does not exist", nil)
	}
	if err != nil {
		return nil, s.classify("get phrase", err)
	}
	return &p, nil
}

// PhraseCount returns the catalog size.
func (s *Store) PhraseCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM phrases").Scan(&count); err != nil {
		return 0, s.classify("phrase count", err)
	}
	return count, nil
}

// Summary aggregates catalog and submission totals.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	summary := Summary{Quota: s.quota}
	err := s.withTx(ctx, s.dialect.readTx, "summary", func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			s.q("SELECT COUNT(1), COALESCE(SUM(CASE WHEN sample_count < ? THEN 1 ELSE 0 END), 0) FROM phrases"),
			s.quota,
		).Scan(&summary.Phrases, &summary.Eligible); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			"SELECT COUNT(1), COUNT(DISTINCT contributor_id) FROM submissions",
		).Scan(&summary.Submissions, &summary.Contributors)
	})
	if err != nil {
		return Summary{}, err
	}
	summary.Exhausted = summary.Phrases - summary.Eligible
	return summary, nil
}
