package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"omniex/pkg/core"
)

// LoadDocument reads a backend override document from a YAML file. The
// result participates in extends chains like any registered document.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes YAML bytes into a Document.
func ParseDocument(data []byte) (Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return Document(raw).Clone(), nil
}

// CredentialsFromEnv reads credentials for a backend from the environment,
// optionally loading dotenv files first. The variables are
// <BACKEND>_API_KEY, <BACKEND>_SECRET and <BACKEND>_PASSWORD with the
// backend id upper-cased.
func CredentialsFromEnv(backendID string, dotenvFiles ...string) (*core.Credentials, error) {
	if len(dotenvFiles) > 0 {
		if err := godotenv.Load(dotenvFiles...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}
	prefix := strings.ToUpper(backendID)
	return &core.Credentials{
		APIKey:   os.Getenv(prefix + "_API_KEY"),
		Secret:   os.Getenv(prefix + "_SECRET"),
		Password: os.Getenv(prefix + "_PASSWORD"),
	}, nil
}
