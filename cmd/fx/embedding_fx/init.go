package embedding_fx

import (
	"context"
	"io"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"vinatravel/internal/config"
	"vinatravel/internal/repositories"
	"vinatravel/pkg/utils"
)

var Module = fx.Provide(
	provideEmbeddingClient, provideVectorIndexRepo)

func provideEmbeddingClient(lc fx.Lifecycle, cfg *config.Config) (utils.EmbeddingClientInterface, error) {
	e := cfg.Embedding
	client, err := utils.NewEmbeddingClient(context.Background(), e.Provider, e.APIKey, e.Model, e.Dimensions)
	if err != nil {
		return nil, err
	}
	if closer, ok := client.(io.Closer); ok {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error { return closer.Close() },
		})
	}
	return client, nil
}

func provideVectorIndexRepo(db *gorm.DB) repositories.VectorIndexRepository {
	return repositories.NewVectorIndexRepository(db)
}
