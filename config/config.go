// agora/config/config.go
package config

import (
	"fmt"
	"strconv"
	"time"

	"agora/utils"

	"github.com/joho/godotenv"
)

const (
	AppVersion = "1.2.0"
	SiteName   = "agora"

	// Form & Post Limits
	MaxUsernameLen    = 150
	MaxEmailLen       = 254
	MinPasswordLen    = 8
	MaxTitleLen       = 200
	MaxBodyLen        = 50000
	MaxCommentLen     = 8000
	MaxCategoryName   = 100
	MaxCategoryDesc   = 255
	MaxChatMessageLen = 500

	// Chat feed window
	ChatWindow = 50

	// Avatar Upload Limits
	MaxAvatarSize   = 4 * 1024 * 1024 // 4MB
	MaxAvatarWidth  = 6000
	MaxAvatarHeight = 6000
	AvatarSize      = 128

	// Name of the group whose members are moderators.
	ModeratorsGroup = "Moderators"

	DefaultPort       = "8080"
	DefaultDBPath     = "./agora.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	DefaultBackupDir  = "./backups"
	DefaultUploadDir  = "./uploads"
	DefaultBannerFile = "./banner.txt"
	DefaultSessionTTL = "336h"
)

// Config carries runtime settings read from the environment.
type Config struct {
	Port       string
	DBPath     string
	BackupDir  string
	UploadDir  string
	BannerFile string
	SessionTTL time.Duration

	// Bootstrap superuser, created on startup if both are set and the name is free.
	AdminUser     string
	AdminPassword string

	S3 S3Config
}

// S3Config holds object storage settings for avatars.
type S3Config struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	PublicURL string
	UseSSL    bool
}

// Load reads an optional .env file and then the AGORA_* environment variables.
func Load() (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	ttl, err := time.ParseDuration(utils.GetEnv("AGORA_SESSION_TTL", DefaultSessionTTL))
	if err != nil {
		return nil, fmt.Errorf("invalid AGORA_SESSION_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid AGORA_SESSION_TTL: must be positive")
	}
	if _, err := strconv.Atoi(utils.GetEnv("AGORA_PORT", DefaultPort)); err != nil {
		return nil, fmt.Errorf("invalid AGORA_PORT: %w", err)
	}

	return &Config{
		Port:          utils.GetEnv("AGORA_PORT", DefaultPort),
		DBPath:        utils.GetEnv("AGORA_DB_PATH", DefaultDBPath),
		BackupDir:     utils.GetEnv("AGORA_BACKUP_DIR", DefaultBackupDir),
		UploadDir:     utils.GetEnv("AGORA_UPLOAD_DIR", DefaultUploadDir),
		BannerFile:    utils.GetEnv("AGORA_BANNER_FILE", DefaultBannerFile),
		SessionTTL:    ttl,
		AdminUser:     utils.GetEnv("AGORA_ADMIN_USER", ""),
		AdminPassword: utils.GetEnv("AGORA_ADMIN_PASSWORD", ""),
		S3: S3Config{
			Enabled:   utils.GetEnvBool("AGORA_S3_ENABLED", false),
			Endpoint:  utils.GetEnv("AGORA_S3_ENDPOINT", ""),
			AccessKey: utils.GetEnv("AGORA_S3_ACCESS_KEY", ""),
			SecretKey: utils.GetEnv("AGORA_S3_SECRET_KEY", ""),
			Bucket:    utils.GetEnv("AGORA_S3_BUCKET", ""),
			Region:    utils.GetEnv("AGORA_S3_REGION", "us-east-1"),
			PublicURL: utils.GetEnv("AGORA_S3_PUBLIC_URL", ""),
			UseSSL:    utils.GetEnvBool("AGORA_S3_USE_SSL", true),
		},
	}, nil
}
