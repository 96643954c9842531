package config

import "time"

// Settings is the immutable view of the try-on tunables, built once after LoadConfig.
type Settings struct {
	BaseURL            string
	MaxRetries         int
	RetryDelay         time.Duration
	PollInterval       time.Duration
	RequestTimeout     time.Duration
	UploadMaxDimension int
}

// TryOnSettings snapshots the package-level configuration.
func TryOnSettings() Settings {
	return Settings{
		BaseURL:            ComfyBaseURL,
		MaxRetries:         MaxRetries,
		RetryDelay:         RetryDelay,
		PollInterval:       PollInterval,
		RequestTimeout:     RequestTimeout,
		UploadMaxDimension: UploadMaxDimension,
	}
}

// DefaultSettings mirrors the LoadConfig defaults without touching the environment.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:            "http://127.0.0.1:8188",
		MaxRetries:         3,
		RetryDelay:         time.Second,
		PollInterval:       time.Second,
		RequestTimeout:     30 * time.Second,
		UploadMaxDimension: 2048,
	}
}
