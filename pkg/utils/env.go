package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig loads the .env file at path into both the process
// environment and viper, so os.Getenv readers and viper flag bindings
// see the same values. Missing .env is fine.
func LoadConfig(path string) {
	envFile := filepath.Join(path, ".env")

	if err := godotenv.Load(envFile); err == nil {
		logrus.Debugf("[APP] loaded environment from %s", envFile)
	}

	viper.AddConfigPath(path)
	viper.SetConfigFile(envFile)
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// CreateFolder creates every folder in the list, parents included.
func CreateFolder(folders ...string) error {
	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0755); err != nil {
			return err
		}
	}
	return nil
}
