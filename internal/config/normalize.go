package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNotion()
	c.normalizeProperties()
	c.normalizeQueue()
	c.normalizeDedup()
	c.Defaults.Status = strings.TrimSpace(c.Defaults.Status)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotion() {
	if c.Notion.Token == "" {
		if value, ok := os.LookupEnv("NOTION_TOKEN"); ok {
			c.Notion.Token = value
		}
	}
	if c.Notion.DatabaseID == "" {
		if value, ok := os.LookupEnv("NOTION_DATABASE_ID"); ok {
			c.Notion.DatabaseID = value
		}
	}
	c.Notion.Token = strings.TrimSpace(c.Notion.Token)
	c.Notion.DatabaseID = strings.TrimSpace(c.Notion.DatabaseID)
	c.Notion.BaseURL = strings.TrimRight(strings.TrimSpace(c.Notion.BaseURL), "/")
	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = defaultNotionBaseURL
	}
	c.Notion.APIVersion = strings.TrimSpace(c.Notion.APIVersion)
	if c.Notion.APIVersion == "" {
		c.Notion.APIVersion = defaultNotionAPIVersion
	}
	if c.Notion.TimeoutSeconds <= 0 {
		c.Notion.TimeoutSeconds = defaultNotionTimeoutSeconds
	}
}

func (c *Config) normalizeProperties() {
	p := &c.Properties
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&p.Title, defaultPropertyTitle)
	fill(&p.URL, defaultPropertyURL)
	fill(&p.Description, defaultPropertyDescription)
	fill(&p.Creator, defaultPropertyCreator)
	fill(&p.Watched, defaultPropertyWatched)
	fill(&p.WatchedDate, defaultPropertyWatchedDate)
	fill(&p.Status, defaultPropertyStatus)
	fill(&p.Images, defaultPropertyImages)
	fill(&p.Tags, defaultPropertyTags)
	fill(&p.Rating, defaultPropertyRating)
	fill(&p.Identifier, defaultPropertyIdentifier)
	fill(&p.ReleaseYear, defaultPropertyReleaseYear)
}

func (c *Config) normalizeQueue() {
	if c.Queue.MinIntervalMillis <= 0 {
		c.Queue.MinIntervalMillis = defaultQueueMinIntervalMillis
	}
	if c.Queue.MaxRetries < 0 {
		c.Queue.MaxRetries = defaultQueueMaxRetries
	}
	if c.Queue.RetryBufferMillis < 0 {
		c.Queue.RetryBufferMillis = defaultQueueRetryBufferMillis
	}
	if c.Queue.DefaultRetryAfterSeconds <= 0 {
		c.Queue.DefaultRetryAfterSeconds = defaultQueueRetryAfterSeconds
	}
}

func (c *Config) normalizeDedup() {
	if c.Dedup.FuzzyThreshold == 0 {
		c.Dedup.FuzzyThreshold = defaultDedupFuzzyThreshold
	}
	if c.Dedup.PageSize <= 0 {
		c.Dedup.PageSize = defaultDedupPageSize
	}
	if c.Dedup.MaxPages <= 0 {
		c.Dedup.MaxPages = defaultDedupMaxPages
	}
	if c.Dedup.MaxCandidates <= 0 {
		c.Dedup.MaxCandidates = defaultDedupMaxCandidates
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
