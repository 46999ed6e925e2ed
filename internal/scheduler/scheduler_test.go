package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/service"
	"github.com/voyagen/watchvault/internal/store"
)

type countingJob struct {
	runs int
	err  error
}

func (*countingJob) Name() string { return "count" }

func (j *countingJob) Run(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	j.runs++
	return j.err
}

func TestAddJob(t *testing.T) {
	s := New(0)
	job := &countingJob{}

	require.NoError(t, s.AddJob("0 0 4 * * *", job))
	assert.ErrorContains(t, s.AddJob("0 0 5 * * *", job), "already registered")
	assert.Error(t, New(0).AddJob("not a spec", job))
	// five-field specs are rejected because the seconds field is required
	assert.Error(t, New(0).AddJob("0 4 * * *", job))
}

func TestRunJobNow(t *testing.T) {
	s := New(0)
	job := &countingJob{}
	require.NoError(t, s.AddJob("@daily", job))

	require.NoError(t, s.RunJobNow("count"))
	assert.Equal(t, 1, job.runs)

	job.err = errors.New("boom")
	assert.EqualError(t, s.RunJobNow("count"), "boom")
	assert.ErrorContains(t, s.RunJobNow("missing"), "not registered")
}

func TestStartStop(t *testing.T) {
	s := New(0)
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

type staticMetadata struct{}

func (staticMetadata) ByID(context.Context, string) (*models.ExternalMetadata, error) {
	return &models.ExternalMetadata{Ratings: []models.Rating{{Source: "Metacritic", Value: "89/100"}}}, nil
}

func TestRatingsRefreshJob(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m, err := st.InsertMedia(ctx, models.MediaCreate{Title: "Heat", MediaType: models.MediaTypeMovie, ImdbID: "tt0113277"})
	require.NoError(t, err)

	s := New(0)
	require.NoError(t, s.AddJob("0 0 4 * * *", RatingsRefreshJob{Refresher: &service.Refresher{Store: st, Metadata: staticMetadata{}}}))
	require.NoError(t, s.RunJobNow("ratings-refresh"))

	got, err := st.GetMedia(ctx, m.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Ratings, "89/100")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type panickingJob struct{}

func (panickingJob) Name() string { return "panics" }

func (panickingJob) Run(context.Context) error { panic("job exploded") }

func TestRecoveredPanicGoesToStandardLogger(t *testing.T) {
	var out lockedBuffer
	prev := log.Writer()
	log.SetOutput(&out)
	t.Cleanup(func() { log.SetOutput(prev) })

	s := New(0)
	require.NoError(t, s.AddJob("* * * * * *", panickingJob{}))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "job exploded")
	}, 3*time.Second, 20*time.Millisecond)
}
