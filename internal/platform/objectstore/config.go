package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grewanderer/datapact/internal/platform/env"
)

type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Region        string
	UseSSL        bool
	BucketData    string
	BucketReports string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("DATAPACT_S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:      env.String("DATAPACT_S3_ENDPOINT", "localhost:9000"),
		AccessKey:     env.String("DATAPACT_S3_ACCESS_KEY", "datapact"),
		SecretKey:     env.String("DATAPACT_S3_SECRET_KEY", "datapactminio"),
		Region:        env.String("DATAPACT_S3_REGION", "us-east-1"),
		UseSSL:        useSSL,
		BucketData:    env.String("DATAPACT_S3_BUCKET_DATA", "data"),
		BucketReports: env.String("DATAPACT_S3_BUCKET_REPORTS", "reports"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketData) == "" {
		return errors.New("data bucket is required")
	}
	if strings.TrimSpace(c.BucketReports) == "" {
		return errors.New("reports bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
