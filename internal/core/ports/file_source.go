package ports

import (
	"context"

	"go.trai.ch/bom/internal/core/domain"
)

// FileSource enumerates the files a scan covers, with install paths and provenance
// already resolved from the specimen configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=file_source.go -destination=mocks/mock_file_source.go -package=mocks
type FileSource interface {
	Files(ctx context.Context, cfg *domain.ScanConfig) ([]domain.FileRef, error)
}
