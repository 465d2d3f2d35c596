package config

const (
	defaultStateDir               = "~/.local/share/watchlog"
	defaultLogDir                 = "~/.local/share/watchlog/logs"
	defaultNotionBaseURL          = "https://api.notion.com/v1"
	defaultNotionAPIVersion       = "2022-06-28"
	defaultNotionTimeoutSeconds   = 30
	defaultQueueMinIntervalMillis = 350
	defaultQueueMaxRetries        = 5
	defaultQueueRetryBufferMillis = 250
	defaultQueueRetryAfterSeconds = 2
	defaultDedupFuzzyThreshold    = 0.55
	defaultDedupPageSize          = 100
	defaultDedupMaxPages          = 3
	defaultDedupMaxCandidates     = 5
	defaultStatus                 = "鑑賞終了"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultPropertyTitle          = "Name"
	defaultPropertyURL            = "URL"
	defaultPropertyDescription    = "概要"
	defaultPropertyCreator        = "監督"
	defaultPropertyWatched        = "鑑賞終了"
	defaultPropertyWatchedDate    = "日付"
	defaultPropertyStatus         = "ステータス"
	defaultPropertyImages         = "カバー画像"
	defaultPropertyTags           = "ジャンル"
	defaultPropertyRating         = "オススメ度"
	defaultPropertyIdentifier     = "ASIN"
	defaultPropertyReleaseYear    = "公開年"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Notion: Notion{
			BaseURL:        defaultNotionBaseURL,
			APIVersion:     defaultNotionAPIVersion,
			TimeoutSeconds: defaultNotionTimeoutSeconds,
		},
		Properties: Properties{
			Title:       defaultPropertyTitle,
			URL:         defaultPropertyURL,
			Description: defaultPropertyDescription,
			Creator:     defaultPropertyCreator,
			Watched:     defaultPropertyWatched,
			WatchedDate: defaultPropertyWatchedDate,
			Status:      defaultPropertyStatus,
			Images:      defaultPropertyImages,
			Tags:        defaultPropertyTags,
			Rating:      defaultPropertyRating,
			Identifier:  defaultPropertyIdentifier,
			ReleaseYear: defaultPropertyReleaseYear,
		},
		Queue: Queue{
			MinIntervalMillis:        defaultQueueMinIntervalMillis,
			MaxRetries:               defaultQueueMaxRetries,
			RetryBufferMillis:        defaultQueueRetryBufferMillis,
			DefaultRetryAfterSeconds: defaultQueueRetryAfterSeconds,
		},
		Dedup: Dedup{
			FuzzyThreshold: defaultDedupFuzzyThreshold,
			PageSize:       defaultDedupPageSize,
			MaxPages:       defaultDedupMaxPages,
			MaxCandidates:  defaultDedupMaxCandidates,
		},
		Defaults: Defaults{
			Status:      defaultStatus,
			MarkWatched: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
