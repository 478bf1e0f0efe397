// config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is loaded once at startup and passed by value into every component.
type Config struct {
	DatabaseURL string

	Reddit    RedditConfig
	Subreddit string
	ReadOnly  bool
	Verbose   bool

	LinkFlairTemplates LinkFlairTemplates
	Points             PointsConfig

	ImageSearch ImageSearchConfig
	Redis       RedisConfig
	R2          R2Config

	ScanInterval    time.Duration
	ReportInterval  time.Duration
	LeaderboardCron string

	APIAddr  string
	APIToken string
}

type RedditConfig struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// LinkFlairTemplates holds post flair template ids. An empty string means
// no template is configured for that state.
type LinkFlairTemplates struct {
	Easy       string
	Hard       string
	Meta       string
	Identified IdentifiedTemplates
}

type IdentifiedTemplates struct {
	Normal string
	Easy   string
	Hard   string
}

// PointsConfig overrides the built-in score table. Nil cells fall back to defaults.
type PointsConfig struct {
	Guesser   RolePoints
	Submitter RolePoints
}

type RolePoints struct {
	Normal *int
	Google *int
}

type ImageSearchConfig struct {
	APIKey  string
	BaseURL string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough R2 settings are present to archive leaderboards.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.Bucket != "" && c.AccessKeyID != ""
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Reddit: RedditConfig{
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			Username:     os.Getenv("REDDIT_USERNAME"),
			Password:     os.Getenv("REDDIT_PASSWORD"),
			UserAgent:    getEnv("REDDIT_USER_AGENT", "picturegame-bot/1.0"),
		},
		Subreddit: getEnv("SUBREDDIT", "PictureGame"),
		ReadOnly:  getBool("READ_ONLY", false),
		Verbose:   getBool("VERBOSE", false),
		LinkFlairTemplates: LinkFlairTemplates{
			Easy: os.Getenv("FLAIR_EASY"),
			Hard: os.Getenv("FLAIR_HARD"),
			Meta: os.Getenv("FLAIR_META"),
			Identified: IdentifiedTemplates{
				Normal: os.Getenv("FLAIR_IDENTIFIED"),
				Easy:   os.Getenv("FLAIR_IDENTIFIED_EASY"),
				Hard:   os.Getenv("FLAIR_IDENTIFIED_HARD"),
			},
		},
		Points: PointsConfig{
			Guesser: RolePoints{
				Normal: getIntPtr("POINTS_GUESSER_NORMAL"),
				Google: getIntPtr("POINTS_GUESSER_GOOGLE"),
			},
			Submitter: RolePoints{
				Normal: getIntPtr("POINTS_SUBMITTER_NORMAL"),
				Google: getIntPtr("POINTS_SUBMITTER_GOOGLE"),
			},
		},
		ImageSearch: ImageSearchConfig{
			APIKey:  os.Getenv("SERPAPI_KEY"),
			BaseURL: getEnv("SERPAPI_URL", "https://serpapi.com/search.json"),
		},
		Redis: RedisConfig{
			Address:  os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
		ScanInterval:    getDuration("SCAN_INTERVAL", 30*time.Second),
		ReportInterval:  getDuration("REPORT_INTERVAL", time.Minute),
		LeaderboardCron: getEnv("LEADERBOARD_CRON", "0 0 1 * *"),
		APIAddr:         getEnv("API_ADDR", ":5200"),
		APIToken:        os.Getenv("API_TOKEN"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("⚠️  %s=%q is not a boolean, using %t", key, val, fallback)
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	if p := getIntPtr(key); p != nil {
		return *p
	}
	return fallback
}

func getIntPtr(key string) *int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("⚠️  %s=%q is not an integer, ignoring", key, val)
		return nil
	}
	return &n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		log.Printf("⚠️  %s=%q is not a valid duration, using %s", key, val, fallback)
		return fallback
	}
	return d
}
