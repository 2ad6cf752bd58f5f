package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/polishtutor/polishtutor/internal/config"
	"github.com/polishtutor/polishtutor/internal/consts"
	"github.com/polishtutor/polishtutor/internal/llm"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel int64 = -1001234567890

type fakeTutor struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (f *fakeTutor) result(op, sentinel string) llm.Result {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
	if f.fail {
		return llm.Result{Text: sentinel, Reason: llm.ReasonBackend, Err: errors.New("backend down")}
	}
	return llm.Result{Text: op + " content"}
}

func (f *fakeTutor) DailyWords(ctx context.Context) llm.Result {
	return f.result("words", consts.SentinelDailyWords)
}

func (f *fakeTutor) DailyText(ctx context.Context) llm.Result {
	return f.result("text", consts.SentinelDailyText)
}

func (f *fakeTutor) DailyQuiz(ctx context.Context) llm.Result {
	return f.result("quiz", consts.SentinelDailyQuiz)
}

func (f *fakeTutor) WordsReminder(ctx context.Context) llm.Result {
	return f.result("reminder", consts.SentinelWordsReminder)
}

func (f *fakeTutor) DailyNews(ctx context.Context) llm.Result {
	return f.result("news", consts.SentinelDailyNews)
}

func (f *fakeTutor) DailyWeather(ctx context.Context) llm.Result {
	return f.result("weather", consts.SentinelDailyWeather)
}

func (f *fakeTutor) WeeklyNews(ctx context.Context) llm.Result {
	return f.result("weekly", consts.SentinelWeeklyNews)
}

func (f *fakeTutor) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type post struct {
	chatID int64
	text   string
}

// fakeChannel posts to a fixed channel id, like the bot does.
type fakeChannel struct {
	mu    sync.Mutex
	posts []post
	err   error
}

func (c *fakeChannel) PostToChannel(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.posts = append(c.posts, post{chatID: testChannel, text: text})
	return nil
}

func (c *fakeChannel) all() []post {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]post(nil), c.posts...)
}

type fakeRecorder struct {
	mu        sync.Mutex
	posts     []string
	keepAlive []string
}

func (r *fakeRecorder) RecordScheduledPost(job, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, job+":"+status)
}

func (r *fakeRecorder) RecordKeepAlive(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keepAlive = append(r.keepAlive, status)
}

func TestRun_DailyQuizCallsOnlyQuizAndPostsToChannel(t *testing.T) {
	tutor := &fakeTutor{}
	channel := &fakeChannel{}
	recorder := &fakeRecorder{}
	d := New(tutor, channel, Options{})
	d.SetRecorder(recorder)

	require.NoError(t, d.Run(context.Background(), JobDailyQuiz))

	assert.Equal(t, []string{"quiz"}, tutor.operations())
	assert.Equal(t, []post{{chatID: testChannel, text: "quiz content"}}, channel.all())
	assert.Equal(t, []string{"fetch_daily_quiz:success"}, recorder.posts)
}

func TestRun_EveryJobCallsItsOperation(t *testing.T) {
	want := map[JobName]string{
		JobDailyWords:    "words",
		JobDailyText:     "text",
		JobDailyQuiz:     "quiz",
		JobWordsReminder: "reminder",
		JobDailyNews:     "news",
		JobDailyWeather:  "weather",
		JobWeeklyNews:    "weekly",
	}
	require.Len(t, KnownJobs(), len(want))

	for name, op := range want {
		t.Run(string(name), func(t *testing.T) {
			tutor := &fakeTutor{}
			channel := &fakeChannel{}
			d := New(tutor, channel, Options{SearchEnabled: true})

			require.NoError(t, d.Run(context.Background(), name))
			assert.Equal(t, []string{op}, tutor.operations())
			assert.Len(t, channel.all(), 1)
		})
	}
}

func TestRun_BackendFailurePostsSentinel(t *testing.T) {
	channel := &fakeChannel{}
	recorder := &fakeRecorder{}
	d := New(&fakeTutor{fail: true}, channel, Options{})
	d.SetRecorder(recorder)

	require.NoError(t, d.Run(context.Background(), JobDailyWords))

	posts := channel.all()
	require.Len(t, posts, 1)
	assert.Equal(t, consts.SentinelDailyWords, posts[0].text)
	assert.Equal(t, []string{"fetch_daily_words:degraded"}, recorder.posts)
}

func TestRun_PostFailureIsReturned(t *testing.T) {
	recorder := &fakeRecorder{}
	d := New(&fakeTutor{}, &fakeChannel{err: errors.New("forbidden")}, Options{})
	d.SetRecorder(recorder)

	err := d.Run(context.Background(), JobDailyText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
	assert.Equal(t, []string{"fetch_daily_text:error"}, recorder.posts)
}

func TestRun_UnknownJob(t *testing.T) {
	tutor := &fakeTutor{}
	channel := &fakeChannel{}
	d := New(tutor, channel, Options{})

	err := d.Run(context.Background(), "fetch_daily_horoscope")
	assert.ErrorIs(t, err, ErrUnknownJob)
	assert.Empty(t, tutor.operations())
	assert.Empty(t, channel.all())
}

func TestRun_SearchJobsNeedSearch(t *testing.T) {
	d := New(&fakeTutor{}, &fakeChannel{}, Options{SearchEnabled: false})

	assert.ErrorIs(t, d.Run(context.Background(), JobDailyNews), ErrSearchDisabled)
}

func TestRegister_DefaultSchedule(t *testing.T) {
	d := New(&fakeTutor{}, &fakeChannel{}, Options{})

	require.NoError(t, d.Register(DefaultSchedule()))

	assert.Equal(t, DefaultSchedule(), d.Jobs())
	assert.Len(t, d.cron.Entries(), 4)
}

func TestRegister_RejectsInvalidSpecsAtomically(t *testing.T) {
	tests := []struct {
		name    string
		specs   []JobSpec
		wantErr error
	}{
		{
			name:    "unknown job",
			specs:   []JobSpec{{Name: JobDailyWords, Spec: "0 8 * * *"}, {Name: "fetch_memes", Spec: "0 9 * * *"}},
			wantErr: ErrUnknownJob,
		},
		{
			name:    "search job without search",
			specs:   []JobSpec{{Name: JobWeeklyNews, Spec: "0 10 * * SAT"}},
			wantErr: ErrSearchDisabled,
		},
		{
			name:  "bad cron",
			specs: []JobSpec{{Name: JobDailyWords, Spec: "0 8 * *"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(&fakeTutor{}, &fakeChannel{}, Options{})

			err := d.Register(tt.specs)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, d.Jobs())
			assert.Empty(t, d.cron.Entries())
		})
	}
}

func TestRegister_SearchJobsWhenEnabled(t *testing.T) {
	d := New(&fakeTutor{}, &fakeChannel{}, Options{SearchEnabled: true})

	require.NoError(t, d.Register([]JobSpec{{Name: JobDailyNews, Spec: "0 7 * * *"}}))
	assert.Len(t, d.Jobs(), 1)
}

func TestRegister_AddsKeepAliveWhenConfigured(t *testing.T) {
	d := New(&fakeTutor{}, &fakeChannel{}, Options{
		SelfPingURL:       "https://tutor.example.com",
		KeepAliveInterval: 10 * time.Minute,
	})

	require.NoError(t, d.Register(DefaultSchedule()))

	assert.Len(t, d.Jobs(), 4)
	assert.Len(t, d.cron.Entries(), 5)
}

func TestNew_UsesScheduleLocation(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	d := New(&fakeTutor{}, &fakeChannel{}, Options{Location: warsaw})
	assert.Equal(t, warsaw, d.cron.Location())

	d = New(&fakeTutor{}, &fakeChannel{}, Options{})
	assert.Equal(t, time.UTC, d.cron.Location())
}

func TestKeepAlive(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(consts.LivenessBody))
	}))
	defer srv.Close()

	recorder := &fakeRecorder{}
	d := New(&fakeTutor{}, &fakeChannel{}, Options{SelfPingURL: srv.URL, KeepAliveInterval: time.Minute})
	d.SetRecorder(recorder)

	d.keepAlive()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, []string{"success"}, recorder.keepAlive)
}

func TestKeepAlive_FailuresAreOnlyRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	recorder := &fakeRecorder{}
	channel := &fakeChannel{}
	d := New(&fakeTutor{}, channel, Options{SelfPingURL: srv.URL})
	d.SetRecorder(recorder)

	assert.NotPanics(t, d.keepAlive)
	assert.Equal(t, []string{"error"}, recorder.keepAlive)
	assert.Empty(t, channel.all())

	d.opts.SelfPingURL = "http://127.0.0.1:0"
	assert.NotPanics(t, d.keepAlive)
	assert.Equal(t, []string{"error", "error"}, recorder.keepAlive)
}

func TestStartStop(t *testing.T) {
	d := New(&fakeTutor{}, &fakeChannel{}, Options{})
	require.NoError(t, d.Register(DefaultSchedule()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	d.Start(ctx)
	d.Stop(ctx)
}

func TestFire_RecoversFromPanickingPoster(t *testing.T) {
	d := New(&fakeTutor{}, panicPoster{}, Options{})
	job := d.cron.Entry(mustAdd(t, d, JobDailyQuiz)).WrappedJob

	assert.NotPanics(t, job.Run)
}

type panicPoster struct{}

func (panicPoster) PostToChannel(ctx context.Context, text string) error {
	panic("telegram exploded")
}

func mustAdd(t *testing.T, d *Dispatcher, name JobName) cron.EntryID {
	t.Helper()
	id, err := d.cron.AddFunc("0 8 * * *", func() { d.fire(name) })
	require.NoError(t, err)
	return id
}

func TestScheduleFromConfig(t *testing.T) {
	specs, err := ScheduleFromConfig(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule(), specs)

	path := filepath.Join(t.TempDir(), "schedule.yaml")
	content := "jobs:\n  - name: fetch_daily_quiz\n    cron: \"30 20 * * *\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	specs, err = ScheduleFromConfig(&config.Config{ScheduleFile: path})
	require.NoError(t, err)
	assert.Equal(t, []JobSpec{{Name: JobDailyQuiz, Spec: "30 20 * * *"}}, specs)

	_, err = ScheduleFromConfig(&config.Config{ScheduleFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
