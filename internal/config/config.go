package config

import (
	"fmt"
	"os"
	"strconv"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr       string
	CSVDir         string
	ScrollPageSize int
}

// LoadCommon builds the shared Elasticsearch config from environment variables.
func LoadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "news"),
	}
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:         LoadCommon(),
		BindAddr:       getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		CSVDir:         getEnv("API_CSV_DIR", "csv_files"),
		ScrollPageSize: getInt("API_SCROLL_PAGE_SIZE", 1000),
	}

	if c.CSVDir == "" {
		return nil, fmt.Errorf("API_CSV_DIR cannot be empty")
	}
	if c.ScrollPageSize <= 0 {
		return nil, fmt.Errorf("API_SCROLL_PAGE_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
