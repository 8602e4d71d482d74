package internal

import (
	"fmt"

	"github.com/hbomb79/Abode/internal/api"
	"github.com/hbomb79/Abode/internal/database"
	"github.com/hbomb79/Abode/internal/ingest"
	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/internal/media/collection"
	"github.com/hbomb79/Abode/internal/upload"
	"github.com/ilyakaznacheev/cleanenv"
)

// AbodeConfig is the struct used to contain the
// various user config supplied by file, or
// manually inside the code.
type AbodeConfig struct {
	IngestService ingest.Config           `yaml:"ingestion" env-required:"true"`
	Collections   collection.Config       `yaml:"collections"`
	Media         media.Config            `yaml:"media"`
	Uploads       upload.Config           `yaml:"uploads" env-required:"true"`
	Database      database.DatabaseConfig `yaml:"database" env-required:"true"`
	RestConfig    api.RestConfig          `yaml:"api"`
}

// LoadFromFile loads a configuration file formatted in YAML in to an
// AbodeConfig struct, with environment variables taking precedence.
func (config *AbodeConfig) LoadFromFile(configPath string) error {
	err := cleanenv.ReadConfig(configPath, config)
	if err != nil {
		return fmt.Errorf("failed to load configuration for Abode - %v", err.Error())
	}

	return nil
}
