package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

type Config struct {
	App
	PostgreSQL
	Blob
	Redis
	HTTP
}

type App struct {
	ScanInterval   time.Duration
	WorkerCount    int
	BatchSize      int
	MaxRowsPerFile int
	LeaseDuration  time.Duration
}

type PostgreSQL struct {
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
}

type Blob struct {
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Bucket           string
	InboundPrefix    string
	ProcessedPrefix  string
	QuarantinePrefix string
	ErrorsPrefix     string
	MarkersPrefix    string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type HTTP struct {
	Host         string
	Port         string
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func Load(cmd *cli.Command) *Config {
	return &Config{
		App: App{
			ScanInterval:   cmd.Duration("scan-interval"),
			WorkerCount:    int(cmd.Int("workers")),
			BatchSize:      int(cmd.Int("batch-size")),
			MaxRowsPerFile: int(cmd.Int("max-rows-per-file")),
			LeaseDuration:  cmd.Duration("lease-duration"),
		},
		PostgreSQL: PostgreSQL{
			Host:     cmd.String("pg-host"),
			Port:     cmd.String("pg-port"),
			Username: cmd.String("pg-username"),
			Password: cmd.String("pg-password"),
			DBName:   cmd.String("pg-dbname"),
		},
		Blob: Blob{
			Endpoint:         cmd.String("blob-endpoint"),
			AccessKeyID:      cmd.String("blob-access-key"),
			SecretAccessKey:  cmd.String("blob-secret-key"),
			UseSSL:           cmd.Bool("blob-use-ssl"),
			Bucket:           cmd.String("blob-bucket"),
			InboundPrefix:    cmd.String("blob-inbound-prefix"),
			ProcessedPrefix:  cmd.String("blob-processed-prefix"),
			QuarantinePrefix: cmd.String("blob-quarantine-prefix"),
			ErrorsPrefix:     cmd.String("blob-errors-prefix"),
			MarkersPrefix:    cmd.String("blob-markers-prefix"),
		},
		Redis: Redis{
			Addr:     cmd.String("redis-addr"),
			Password: cmd.String("redis-password"),
			DB:       int(cmd.Int("redis-db")),
		},
		HTTP: HTTP{
			Host:         cmd.String("http-host"),
			Port:         cmd.String("http-port"),
			IdleTimeout:  cmd.Duration("http-idle-timeout"),
			ReadTimeout:  cmd.Duration("http-read-timeout"),
			WriteTimeout: cmd.Duration("http-write-timeout"),
		},
	}
}
