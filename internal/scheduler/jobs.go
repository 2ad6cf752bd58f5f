package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/polishtutor/polishtutor/internal/config"
	"github.com/polishtutor/polishtutor/internal/consts"
	"github.com/polishtutor/polishtutor/internal/llm"
)

// JobName identifies a scheduled posting job.
type JobName string

const (
	JobDailyWords    JobName = "fetch_daily_words"
	JobDailyText     JobName = "fetch_daily_text"
	JobDailyQuiz     JobName = "fetch_daily_quiz"
	JobWordsReminder JobName = "fetch_words_reminder"
	JobDailyNews     JobName = "fetch_daily_news"
	JobDailyWeather  JobName = "fetch_daily_weather"
	JobWeeklyNews    JobName = "fetch_weekly_news"
)

var (
	ErrUnknownJob     = errors.New("unknown job")
	ErrSearchDisabled = errors.New("job requires search to be enabled")
)

// JobSpec binds a job to a cron expression.
type JobSpec struct {
	Name JobName
	Spec string
}

// Tutor is the set of backend operations scheduled jobs can call.
type Tutor interface {
	DailyWords(ctx context.Context) llm.Result
	DailyText(ctx context.Context) llm.Result
	DailyQuiz(ctx context.Context) llm.Result
	WordsReminder(ctx context.Context) llm.Result
	DailyNews(ctx context.Context) llm.Result
	DailyWeather(ctx context.Context) llm.Result
	WeeklyNews(ctx context.Context) llm.Result
}

type jobEntry struct {
	run    func(Tutor, context.Context) llm.Result
	search bool
}

var jobTable = map[JobName]jobEntry{
	JobDailyWords:    {run: Tutor.DailyWords},
	JobDailyText:     {run: Tutor.DailyText},
	JobDailyQuiz:     {run: Tutor.DailyQuiz},
	JobWordsReminder: {run: Tutor.WordsReminder},
	JobDailyNews:     {run: Tutor.DailyNews, search: true},
	JobDailyWeather:  {run: Tutor.DailyWeather, search: true},
	JobWeeklyNews:    {run: Tutor.WeeklyNews, search: true},
}

// DefaultSchedule is used when no schedule file is configured.
func DefaultSchedule() []JobSpec {
	return []JobSpec{
		{Name: JobDailyWords, Spec: consts.CronDailyWords},
		{Name: JobDailyText, Spec: consts.CronDailyText},
		{Name: JobDailyQuiz, Spec: consts.CronDailyQuiz},
		{Name: JobWordsReminder, Spec: consts.CronWordsReminder},
	}
}

// ScheduleFromConfig returns the schedule file's jobs when one is configured,
// the default schedule otherwise.
func ScheduleFromConfig(cfg *config.Config) ([]JobSpec, error) {
	if cfg.ScheduleFile == "" {
		return DefaultSchedule(), nil
	}

	entries, err := config.LoadSchedule(cfg.ScheduleFile)
	if err != nil {
		return nil, err
	}

	specs := make([]JobSpec, 0, len(entries))
	for _, e := range entries {
		specs = append(specs, JobSpec{Name: JobName(e.Name), Spec: e.Cron})
	}
	return specs, nil
}

// KnownJobs lists every job name in the table, sorted.
func KnownJobs() []JobName {
	names := make([]JobName, 0, len(jobTable))
	for name := range jobTable {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func lookupJob(name JobName, searchEnabled bool) (jobEntry, error) {
	entry, ok := jobTable[name]
	if !ok {
		return jobEntry{}, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if entry.search && !searchEnabled {
		return jobEntry{}, fmt.Errorf("%w: %q", ErrSearchDisabled, name)
	}
	return entry, nil
}

// ValidateJob reports whether name can run with the given search setting.
func ValidateJob(name JobName, searchEnabled bool) error {
	_, err := lookupJob(name, searchEnabled)
	return err
}
