package repositories

import "context"

// Repository aggregates all domain repositories behind one handle so
// services can run multi-table work through a single transaction.
type Repository interface {
	// Catalog domain
	Template() TemplateRepository
	Version() VersionRepository

	// Structure domain
	Question() QuestionRepository
	Option() OptionRepository

	// Administration domain
	Period() PeriodRepository
	Test() TestRepository

	// Runtime domain
	Student() StudentRepository
	Assignment() AssignmentRepository
	Answer() AnswerRepository

	// Reporting domain
	Results() ResultsRepository

	// Transaction support. fn receives a Repository bound to the open
	// transaction; returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
