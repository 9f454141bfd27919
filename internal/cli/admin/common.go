package admin

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/archivesearch/internal/config"
	"github.com/cloo-solutions/archivesearch/internal/database"
	"github.com/cloo-solutions/archivesearch/internal/service"
	"github.com/cloo-solutions/archivesearch/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

const logArchivePrefix = "logs"

func getDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if !cfg.HasDatabase() {
		return nil, fmt.Errorf("ARCHIVESEARCH_DATABASE_URL is not set")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

func newS3Client(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, fmt.Errorf("S3 is not configured: set ARCHIVESEARCH_S3_ENDPOINT, ARCHIVESEARCH_S3_ACCESS_KEY_ID and ARCHIVESEARCH_S3_SECRET_ACCESS_KEY")
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}

func newFileQueryLog(cfg *config.Config) (*service.FileQueryLog, error) {
	queryLog, err := service.NewFileQueryLog(cfg.QueryLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open query log: %w", err)
	}
	return queryLog, nil
}
