// Package store provides the run history interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/seiqhcdro/internal/model"
)

// ErrNotFound is returned when no live run matches a namespace and key.
var ErrNotFound = errors.New("run not found")

// PutParams holds parameters for saving a run.
type PutParams struct {
	NS       string
	Key      string
	Scenario *model.Scenario
	Days     []model.DayStat
	Tags     []string
	Note     string
}

// GetParams holds parameters for retrieving a run.
type GetParams struct {
	NS       string
	Key      string
	History  bool
	Version  int // 0 means latest
	WithDays bool
}

// ListParams holds parameters for listing runs.
type ListParams struct {
	NS    string
	Tags  []string
	Limit int
}

// RmParams holds parameters for deleting a run.
type RmParams struct {
	NS          string
	Key         string
	AllVersions bool
	Hard        bool
}

// Store defines the run history interface.
type Store interface {
	// Put saves a run, versioning over any live run with the same ns/key.
	Put(ctx context.Context, p PutParams) (*model.Run, error)

	// Get retrieves a run by namespace and key.
	// Returns a slice (single element normally, multiple with History=true).
	Get(ctx context.Context, p GetParams) ([]model.Run, error)

	// List lists the latest version of each run matching the filters.
	List(ctx context.Context, p ListParams) ([]model.Run, error)

	// Rm soft-deletes (or hard-deletes) a run.
	Rm(ctx context.Context, p RmParams) error

	// Close closes the store.
	Close() error
}
