// Package recorder orchestrates one upload end to end: validate, normalize,
// store the blob, then commit the submission and counter increment as one
// transaction.
//
// The database is never touched until the blob store confirms the write, so
// a timed-out or failed upload cannot leave a submission row without audio.
// Once the blob exists the commit runs detached from client cancellation.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"voicecollect/internal/audio"
	"voicecollect/internal/blobstore"
	"voicecollect/internal/config"
	"voicecollect/internal/logging"
	"voicecollect/internal/metrics"
	"voicecollect/internal/phrases"
	"voicecollect/internal/services"
)

const component = "recorder"

// ErrPayloadTooLarge marks uploads over the configured size limit. It is
// always wrapped together with services.ErrInvalidMedia.
var ErrPayloadTooLarge = errors.New("payload too large")

// Committer is the slice of the repository the recorder writes through.
type Committer interface {
	CommitSubmission(ctx context.Context, sub phrases.Submission) (phrases.Submission, error)
}

// Request is one inbound upload.
type Request struct {
	PhraseID      int64
	ContributorID string
	MediaType     string
	Audio         []byte
}

// Result describes a committed submission.
type Result struct {
	SubmissionID string `json:"submission_id"`
	AudioRef     string `json:"audio_ref"`
	StorageID    string `json:"storage_id,omitempty"`
	PhraseID     int64  `json:"phrase_id"`
	SampleCount  int64  `json:"sample_count"`
}

// Limits bounds request size and the two blocking phases.
type Limits struct {
	MaxUploadBytes int64
	StorageTimeout time.Duration
	CommitTimeout  time.Duration
}

// LimitsFromConfig extracts the recorder limits.
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxUploadBytes: cfg.Collection.MaxUploadBytes,
		StorageTimeout: cfg.StorageTimeout(),
		CommitTimeout:  cfg.CommitTimeout(),
	}
}

// Recorder is safe for concurrent use.
type Recorder struct {
	repo       Committer
	normalizer audio.Normalizer
	blobs      blobstore.Store
	metrics    *metrics.Metrics
	limits     Limits
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithMetrics attaches collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logging.NewComponentLogger(logger, component) }
}

// New wires a recorder from its collaborators.
func New(repo Committer, normalizer audio.Normalizer, blobs blobstore.Store, limits Limits, opts ...Option) (*Recorder, error) {
	if repo == nil || normalizer == nil || blobs == nil {
		return nil, fmt.Errorf("recorder: repository, normalizer and blob store are required")
	}
	r := &Recorder{
		repo:       repo,
		normalizer: normalizer,
		blobs:      blobs,
		limits:     limits,
		logger:     logging.NewComponentLogger(nil, component),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RecordSubmission runs the full pipeline for req.
func (r *Recorder) RecordSubmission(ctx context.Context, req Request) (result Result, err error) {
	start := r.now()
	req.ContributorID = strings.TrimSpace(req.ContributorID)
	ctx = services.WithPhraseID(ctx, req.PhraseID)
	ctx = services.WithContributor(ctx, req.ContributorID)
	logger := logging.WithContext(ctx, r.logger)

	defer func() {
		elapsed := r.now().Sub(start)
		if err == nil {
			r.metrics.RecordSubmission(metrics.OutcomeCommitted, elapsed)
			return
		}
		kind := services.KindOf(err)
		r.metrics.RecordSubmission(string(kind), elapsed)
		attrs := []logging.Attr{
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		}
		switch kind {
		case services.KindInvalidMedia, services.KindNormalizationFailed, services.KindNotFound:
			logging.WarnWithContext(logger, "submission rejected", "submission_rejected", attrs...)
		default:
			logging.ErrorWithContext(logger, "submission failed", "submission_failed", append(attrs,
				logging.Bool("retryable", services.Retryable(err)))...)
		}
	}()

	if err := r.validate(req); err != nil {
		return Result{}, err
	}
	r.metrics.ObserveUpload(len(req.Audio))

	clip, err := r.normalizer.Normalize(ctx, req.Audio, req.MediaType)
	if err != nil {
		if !errors.Is(err, services.ErrNormalizationFailed) {
			err = services.Wrap(services.ErrNormalizationFailed, component, "normalize", "normalizer failed", err)
		}
		return Result{}, err
	}

	// The id names the blob too, so identical clips never share an object.
	id := uuid.NewString()
	obj, err := r.store(ctx, id, clip)
	if err != nil {
		return Result{}, err
	}

	// The blob exists now; a client hang-up must not strand it uncommitted.
	commitCtx, cancel := r.commitContext(ctx)
	defer cancel()
	sub, err := r.repo.CommitSubmission(commitCtx, phrases.Submission{
		ID:            id,
		PhraseID:      req.PhraseID,
		ContributorID: req.ContributorID,
		AudioRef:      obj.AudioRef,
		StorageID:     obj.StorageID,
	})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logging.WarnWithContext(logger, "stored blob orphaned by missing phrase", "blob_orphaned",
				logging.String("storage_id", obj.StorageID),
				logging.String("audio_ref", obj.AudioRef),
				logging.String(logging.FieldImpact, "blob is unreferenced until reconciled"),
				logging.Alert("reconcile_storage"),
			)
		}
		if services.KindOf(err) == services.KindInternal {
			err = services.Wrap(services.ErrUnavailable, component, "commit", "commit failed", err)
		}
		return Result{}, err
	}

	logger.Info("submission recorded",
		logging.String(logging.FieldSubmissionID, sub.ID),
		logging.String("storage_id", obj.StorageID),
		logging.String("audio_format", clip.ContentType),
		logging.String("audio_size", humanize.IBytes(uint64(clip.Size()))),
		logging.Duration("clip_duration", clip.Duration),
		logging.Int64("sample_count", sub.PhraseSampleCount),
		logging.String(logging.FieldEventType, "submission_recorded"),
	)
	return Result{
		SubmissionID: sub.ID,
		AudioRef:     obj.AudioRef,
		StorageID:    obj.StorageID,
		PhraseID:     sub.PhraseID,
		SampleCount:  sub.PhraseSampleCount,
	}, nil
}

func (r *Recorder) validate(req Request) error {
	if _, err := audio.ParseMediaType(req.MediaType); err != nil {
		return invalid("media type is not audio", err)
	}
	if len(req.Audio) == 0 {
		return invalid("audio payload is empty", nil)
	}
	if r.limits.MaxUploadBytes > 0 && int64(len(req.Audio)) > r.limits.MaxUploadBytes {
		return invalid(fmt.Sprintf("audio payload exceeds %s", humanize.IBytes(uint64(r.limits.MaxUploadBytes))), ErrPayloadTooLarge)
	}
	if req.ContributorID == "" {
		return invalid("contributor id is required", nil)
	}
	if req.PhraseID <= 0 {
		// No catalog row can carry a non-positive id; skip the upload work.
		return services.Wrap(services.ErrNotFound, component, "validate",
			fmt.Sprintf("phrase %d does not exist", req.PhraseID), nil)
	}
	return nil
}

func (r *Recorder) store(ctx context.Context, id string, clip audio.NormalizedAudio) (blobstore.Object, error) {
	if r.limits.StorageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.limits.StorageTimeout)
		defer cancel()
	}
	obj, err := r.blobs.Put(ctx, id, clip)
	if err != nil {
		if !errors.Is(err, services.ErrStorageFailed) {
			err = services.Wrap(services.ErrStorageFailed, component, "store", "blob store put failed", err)
		}
		return blobstore.Object{}, err
	}
	if strings.TrimSpace(obj.AudioRef) == "" {
		return blobstore.Object{}, services.Wrap(services.ErrStorageFailed, component, "store", "blob store returned no audio ref", nil)
	}
	return obj, nil
}

func (r *Recorder) commitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if r.limits.CommitTimeout > 0 {
		return context.WithTimeout(detached, r.limits.CommitTimeout)
	}
	return context.WithCancel(detached)
}

func invalid(message string, err error) error {
	return services.Wrap(services.ErrInvalidMedia, component, "validate", message, err)
}
