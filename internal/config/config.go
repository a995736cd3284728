package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Push provider names accepted by PUSH_PROVIDER.
const (
	PushProviderFCM = "fcm"
	PushProviderSNS = "sns"
	PushProviderLog = "log"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	PushProvider            string
	FirebaseCredentialsFile string
	SNSRegion               string
	SNSPlatformARNIOS       string
	SNSPlatformARNAndroid   string
	PushTimeout             time.Duration
	PushRateLimit           int // sends per second across all dispatches
	DispatchConcurrency     int

	ReminderInterval   time.Duration
	ReminderWindow     time.Duration
	PreferenceCacheTTL time.Duration

	RedisURL          string // optional; enables the durable reminder dedup cache
	NATSURL           string // optional; enables realtime inbox events
	NATSSubjectPrefix string

	AllowedOrigins []string // CORS allowed origins
	TrustProxy     bool     // take the client IP from X-Forwarded-For/X-Real-Ip
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Notifications string
	PushTokens    string
	Preferences   string
	Events        string
	EventRSVPs    string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			PushTokens:    getEnv("DYNAMO_TABLE_PUSH_TOKENS", "push_tokens"),
			Preferences:   getEnv("DYNAMO_TABLE_PREFERENCES", "notification_preferences"),
			Events:        getEnv("DYNAMO_TABLE_EVENTS", "events"),
			EventRSVPs:    getEnv("DYNAMO_TABLE_EVENT_RSVPS", "event_rsvps"),
		},

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),

		PushProvider:            strings.ToLower(getEnv("PUSH_PROVIDER", PushProviderLog)),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", "firebase-adminsdk.json"),
		SNSRegion:               getEnv("SNS_REGION", "us-east-1"),
		SNSPlatformARNIOS:       getEnv("SNS_PLATFORM_ARN_IOS", ""),
		SNSPlatformARNAndroid:   getEnv("SNS_PLATFORM_ARN_ANDROID", ""),
		PushTimeout:             getEnvDuration("PUSH_TIMEOUT", 10*time.Second),
		PushRateLimit:           getEnvInt("PUSH_RATE_LIMIT", 100),
		DispatchConcurrency:     getEnvInt("DISPATCH_CONCURRENCY", 16),

		ReminderInterval:   getEnvDuration("REMINDER_INTERVAL", time.Hour),
		ReminderWindow:     getEnvDuration("REMINDER_WINDOW", 24*time.Hour),
		PreferenceCacheTTL: getEnvDuration("PREFERENCE_CACHE_TTL", time.Minute),

		RedisURL:          getEnv("REDIS_URL", ""),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "notifications"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxy:     getEnvBool("TRUST_PROXY", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "1h") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
