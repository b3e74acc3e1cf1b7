package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/BurahnFakhri/audioTranscribe/internal/domain"
	"github.com/BurahnFakhri/audioTranscribe/internal/queue"
	"github.com/BurahnFakhri/audioTranscribe/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	created   []*domain.TranscriptionRecord
	createErr error

	listOpts  storage.ListOptions
	listItems []domain.TranscriptionRecord
	listTotal int
}

func (s *fakeStore) CreateRecord(_ context.Context, rec *domain.TranscriptionRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	cp := *rec
	s.created = append(s.created, &cp)
	return nil
}

func (s *fakeStore) GetRecord(_ context.Context, id string) (*domain.TranscriptionRecord, error) {
	for _, rec := range s.created {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) ListRecords(_ context.Context, opts storage.ListOptions) ([]domain.TranscriptionRecord, int, error) {
	s.listOpts = opts
	return s.listItems, s.listTotal, nil
}

type fakeEnqueuer struct {
	jobs       []queue.JobPayload
	policies   []queue.RetryPolicy
	enqueueErr error
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, payload queue.JobPayload, policy queue.RetryPolicy) (*queue.Job, error) {
	if e.enqueueErr != nil {
		return nil, e.enqueueErr
	}
	e.jobs = append(e.jobs, payload)
	e.policies = append(e.policies, policy)
	return &queue.Job{
		ID:          uuid.New().String(),
		Payload:     payload,
		Status:      queue.JobStatusPending,
		MaxAttempts: policy.MaxAttempts,
		BaseDelay:   policy.BaseDelay,
	}, nil
}

func newService(store *fakeStore, enqueuer *fakeEnqueuer) *TranscriptionService {
	return NewTranscriptionService(store, enqueuer, queue.RetryPolicy{}, testLogger())
}

func TestSubmit_Success(t *testing.T) {
	store := &fakeStore{}
	enqueuer := &fakeEnqueuer{}
	svc := newService(store, enqueuer)

	rec, err := svc.Submit(context.Background(), "https://example.com/audio.mp3")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, domain.StatusPending, rec.Status)
	assert.Equal(t, "https://example.com/audio.mp3", rec.AudioURL)
	assert.Zero(t, rec.Attempts)
	_, uuidErr := uuid.Parse(rec.ID)
	assert.NoError(t, uuidErr)

	require.Len(t, store.created, 1)
	require.Len(t, enqueuer.jobs, 1)
	assert.Equal(t, rec.ID, enqueuer.jobs[0].RecordID)
	assert.Equal(t, rec.AudioURL, enqueuer.jobs[0].AudioURL)

	// Zero policy falls back to the default schedule.
	assert.Equal(t, queue.DefaultRetryPolicy(), enqueuer.policies[0])
}

func TestSubmit_InvalidURL(t *testing.T) {
	tests := []struct {
		name     string
		audioURL string
	}{
		{name: "empty url", audioURL: ""},
		{name: "relative url", audioURL: "/audio.mp3"},
		{name: "missing host", audioURL: "https://"},
		{name: "unsupported scheme", audioURL: "ftp://example.com/audio.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			enqueuer := &fakeEnqueuer{}
			svc := newService(store, enqueuer)

			rec, err := svc.Submit(context.Background(), tt.audioURL)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, rec)

			// Nothing persisted, nothing scheduled.
			assert.Empty(t, store.created)
			assert.Empty(t, enqueuer.jobs)
		})
	}
}

func TestSubmit_CreateFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	enqueuer := &fakeEnqueuer{}
	svc := newService(store, enqueuer)

	_, err := svc.Submit(context.Background(), "https://example.com/audio.mp3")
	require.Error(t, err)
	assert.Empty(t, enqueuer.jobs)
}

func TestSubmit_EnqueueFailureLeavesRecordPending(t *testing.T) {
	store := &fakeStore{}
	enqueuer := &fakeEnqueuer{enqueueErr: errors.New("queue unavailable")}
	svc := newService(store, enqueuer)

	_, err := svc.Submit(context.Background(), "https://example.com/audio.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enqueue")

	// The record was created before the enqueue attempt and remains pending.
	require.Len(t, store.created, 1)
	assert.Equal(t, domain.StatusPending, store.created[0].Status)
}

func TestGet(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeEnqueuer{})

	rec, err := svc.Submit(context.Background(), "https://example.com/audio.mp3")
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_NormalizesPaging(t *testing.T) {
	tests := []struct {
		name      string
		opts      storage.ListOptions
		wantPage  int
		wantLimit int
	}{
		{name: "defaults", opts: storage.ListOptions{}, wantPage: 1, wantLimit: 20},
		{name: "explicit page and limit", opts: storage.ListOptions{Page: 2, Limit: 1}, wantPage: 2, wantLimit: 1},
		{name: "page below one", opts: storage.ListOptions{Page: -3, Limit: 10}, wantPage: 1, wantLimit: 10},
		{name: "limit above maximum", opts: storage.ListOptions{Page: 1, Limit: 500}, wantPage: 1, wantLimit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				listItems: []domain.TranscriptionRecord{{ID: uuid.New().String()}},
				listTotal: 3,
			}
			svc := newService(store, &fakeEnqueuer{})

			result, err := svc.List(context.Background(), tt.opts)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPage, result.Page)
			assert.Equal(t, tt.wantLimit, result.Limit)
			assert.Equal(t, 3, result.Total)

			// The store received the normalized options.
			assert.Equal(t, tt.wantPage, store.listOpts.Page)
			assert.Equal(t, tt.wantLimit, store.listOpts.Limit)
		})
	}
}
