package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScheduleEntry binds a job name to a cron expression.
type ScheduleEntry struct {
	Name string `yaml:"name"`
	Cron string `yaml:"cron"`
}

type scheduleFile struct {
	Jobs []ScheduleEntry `yaml:"jobs"`
}

// LoadSchedule reads a YAML schedule of the form:
//
//	jobs:
//	  - name: fetch_daily_words
//	    cron: "0 8 * * *"
//
// Job names are not resolved here; the scheduler rejects unknown ones.
func LoadSchedule(path string) ([]ScheduleEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}

	var file scheduleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schedule file %s: %w", path, err)
	}

	if len(file.Jobs) == 0 {
		return nil, fmt.Errorf("schedule file %s defines no jobs", path)
	}

	for i, entry := range file.Jobs {
		entry.Name = strings.TrimSpace(entry.Name)
		entry.Cron = strings.TrimSpace(entry.Cron)
		if entry.Name == "" || entry.Cron == "" {
			return nil, fmt.Errorf("schedule entry %d needs both name and cron", i)
		}
		file.Jobs[i] = entry
	}

	return file.Jobs, nil
}
