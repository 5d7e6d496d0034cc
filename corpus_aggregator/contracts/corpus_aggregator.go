package contracts

import (
	"context"

	"github.com/meysamhadeli/corpus/corpus_aggregator/models"
)

type ICorpusAggregator interface {
	Discover(ctx context.Context) ([]string, error)
	Read(path string) (string, error)
	Aggregate(ctx context.Context, paths []string) (*models.Corpus, error)
	SerializeAndWrite(corpus *models.Corpus, outputPath string) (int64, string, error)
	Run(ctx context.Context) (*models.BuildResult, error)
}
