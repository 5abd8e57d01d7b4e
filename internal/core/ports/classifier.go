package ports

import (
	"context"

	"go.trai.ch/bom/internal/core/domain"
)

// Classifier assigns a coarse file type to a file before capabilities are matched.
//
//go:generate go run go.uber.org/mock/mockgen -source=classifier.go -destination=mocks/mock_classifier.go -package=mocks
type Classifier interface {
	Classify(ctx context.Context, file domain.FileRef) (domain.FileType, error)
}
