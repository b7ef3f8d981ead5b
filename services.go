package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"metutor/internal/config"
	"metutor/internal/redis"
	"metutor/internal/service/ai"
	"metutor/internal/service/extract"
	"metutor/internal/service/upload"
	"metutor/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// services holds everything built from config and the handles that need closing.
type services struct {
	gateway   *ai.Gateway
	extractor *extract.Extractor
	uploads   *upload.Service

	db  *sql.DB
	rdb *redis.Client
}

func newServices(ctx context.Context, cfg *config.Config) (*services, error) {
	s := &services{}
	registry, err := s.openRegistry(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	gateway, err := ai.NewGatewayFromConfig(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("init completion gateway: %w", err)
	}
	s.gateway = gateway

	extractor, err := extract.New(ctx, gateway, ai.NewTranscriber(cfg.Transcription), extract.NewFFmpeg(cfg.FFmpeg.Path))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	s.extractor = extractor

	s.uploads = upload.NewService(upload.Options{
		Dir:      cfg.BasicConfig.UploadDir,
		MaxBytes: cfg.MaxUploadBytes(),
		TTL:      time.Duration(cfg.BasicConfig.TempFileTTL) * time.Minute,
	}, registry, extractor)
	return s, nil
}

// openRegistry picks the upload registry backend named in config.
func (s *services) openRegistry(cfg *config.Config) (storage.Registry, error) {
	backend := cfg.BasicConfig.Registry
	log.Debug().Str("registry", backend).Msg("opening upload registry")

	switch backend {
	case "none":
		return storage.NewMemoryRegistry(), nil
	case "redis":
		rdb, err := redis.NewRedisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.rdb = rdb
		return storage.NewRedisRegistry(rdb), nil
	default:
		db, err := storage.Open(backend, cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.db = db
		if err := storage.Migrate(db, backend); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return storage.NewSQLRegistry(db), nil
	}
}

func (s *services) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
}

func detectMIME(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	return mt.String(), nil
}
