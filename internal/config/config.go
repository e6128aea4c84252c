package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// ZaloPayConfig carries the gateway credentials. Resolved once at startup
// and injected into the payment service, never read from the environment at
// call time. Defaults are the public sandbox credentials.
type ZaloPayConfig struct {
	AppID       string
	Key1        string
	Key2        string
	Endpoint    string
	CallbackURL string
}

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	LogLevel    string

	JWTSecret []byte

	KafkaAddress string
	ESURL        string
	ESUser       string
	ESPassword   string
	RedisAddr    string

	ZaloPay ZaloPayConfig
}

func getenv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func must(v string, name string) string {
	if v == "" {
		log.Fatalf("missing required env %s", name)
	}
	return v
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: must(os.Getenv("DATABASE_URL"), "DATABASE_URL"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		JWTSecret: []byte(must(os.Getenv("JWT_HS256_SECRET"), "JWT_HS256_SECRET")),

		KafkaAddress: os.Getenv("KAFKA_ADDRESS"),
		ESURL:        os.Getenv("ES_URL"),
		ESUser:       os.Getenv("ES_USER"),
		ESPassword:   os.Getenv("ES_PASSWORD"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),

		ZaloPay: ZaloPayConfig{
			AppID:       getenv("ZALOPAY_APP_ID", "2553"),
			Key1:        getenv("ZALOPAY_KEY1", "PcY4iZIKFCIdgZvA6ueMcMHHUbRLYjPL"),
			Key2:        getenv("ZALOPAY_KEY2", "kLtgPl8HHhfvMuDHPwKfgfsY4Ydm9eIz"),
			Endpoint:    getenv("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2/create"),
			CallbackURL: getenv("ZALOPAY_CALLBACK_URL", "https://your-api.com/api/v1/payments/zalopay/callback"),
		},
	}

	return cfg, nil
}
