// Package domain defines the core interfaces and types for Pulse.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for assessment persistence.
// All methods require institutionID for strict isolation between institutions.
type Repository interface {
	// Assessment operations
	SaveAssessment(ctx context.Context, institutionID string, a *Assessment) error
	GetAssessment(ctx context.Context, institutionID string, id string) (*Assessment, error)
	ListAssessments(ctx context.Context, institutionID string, limit int) ([]*Assessment, error)

	// RiskDistribution counts stored assessments per risk level.
	RiskDistribution(ctx context.Context, institutionID string) (map[string]int, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver" yaml:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath" yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost" yaml:"postgresHost"`
	PostgresPort     int    `json:"postgresPort" yaml:"postgresPort"`
	PostgresUser     string `json:"postgresUser" yaml:"postgresUser"`
	PostgresPassword string `json:"-" yaml:"postgresPassword"`
	PostgresDB       string `json:"postgresDb" yaml:"postgresDb"`
	PostgresSSLMode  string `json:"postgresSslMode" yaml:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
}
