package utils

import "os"

var (
	HTTP_PORT = GetEnvOrDefault("HTTP_PORT", "8080")

	// KV_BACKEND selects where durable table state lives: memory, disk, redis, crdb, s3 or minio
	KV_BACKEND   = GetEnvOrDefault("KV_BACKEND", "memory")
	KV_DISK_PATH = GetEnvOrDefault("KV_DISK_PATH", "./table_state")

	REDIS_ADDR      = os.Getenv("REDIS_ADDR")
	REDIS_PASSWORD  = os.Getenv("REDIS_PASSWORD")
	REDIS_PING_TEST = os.Getenv("REDIS_PING_TEST") == "1"

	CRDB_DSN = os.Getenv("CRDB_DSN")
	// CRDB_RUN_MIGRATIONS applies pending migrations on boot instead of only checking them
	CRDB_RUN_MIGRATIONS = os.Getenv("CRDB_RUN_MIGRATIONS") == "1"

	AWS_ACCESS_KEY_ID     = os.Getenv("AWS_ACCESS_KEY_ID")
	AWS_SECRET_ACCESS_KEY = os.Getenv("AWS_SECRET_ACCESS_KEY")
	AWS_DEFAULT_REGION    = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_BUCKET_NAME = os.Getenv("S3_BUCKET_NAME")
	S3_ENDPOINT    = os.Getenv("S3_ENDPOINT")
	S3_KEY_PREFIX  = GetEnvOrDefault("S3_KEY_PREFIX", "table_state/")

	MINIO_ENDPOINT   = os.Getenv("MINIO_ENDPOINT")
	MINIO_ACCESS_KEY = os.Getenv("MINIO_ACCESS_KEY")
	MINIO_SECRET_KEY = os.Getenv("MINIO_SECRET_KEY")
	MINIO_SECURE     = os.Getenv("MINIO_SECURE") == "1"

	DEFAULT_PAGE_SIZE = GetEnvOrDefaultInt("DEFAULT_PAGE_SIZE", 10)

	SHUTDOWN_SLEEP_SEC = GetEnvOrDefaultInt("SHUTDOWN_SLEEP_SEC", 0)
)
