package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Questions per quiz started from the chat
	QuestionCount int
	// Telegram refuses to serve bot downloads above 20MB
	MaxUploadBytes int
	// Long polling timeout in seconds
	UpdateTimeout int
	// Time allowed for downloading an uploaded word list
	DownloadTimeout time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		QuestionCount:   10,
		MaxUploadBytes:  20 << 20,
		UpdateTimeout:   60,
		DownloadTimeout: time.Minute,
	}
}
