package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/recipe-service/internal/entity"
)

// RecipeRepoImpl provides a concrete implementation for the RecipeRepository interface using PostgreSQL.
type RecipeRepoImpl struct {
	db *pgxpool.Pool
}

// NewRecipeRepo creates a new instance of RecipeRepoImpl.
func NewRecipeRepo(db *pgxpool.Pool) *RecipeRepoImpl {
	return &RecipeRepoImpl{db: db}
}

// Save stores a finalized recipe and its media references within a single
// transaction.
func (r *RecipeRepoImpl) Save(ctx context.Context, rec *entity.StoredRecipe) (string, error) {
	if rec.Recipe == nil {
		return "", entity.NewStructuralError("cannot store an empty recipe", nil)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(rec.Recipe)
	if err != nil {
		return "", fmt.Errorf("encode recipe: %w", err)
	}

	insert, args, err := psql.Insert("recipes").
		Columns("id", "owner_id", "collection_id", "pending_id", "title", "source_url", "source_type", "confidence_score", "payload", "created_at").
		Values(rec.ID, nullable(rec.Owner), nullable(rec.CollectionID), nullable(rec.PendingID),
			rec.Recipe.Title, rec.Recipe.SourceURL, string(rec.Recipe.SourceType), rec.Recipe.ConfidenceScore, payload, rec.CreatedAt).
		ToSql()
	if err != nil {
		return "", err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insert, args...); err != nil {
		return "", fmt.Errorf("insert recipe: %w", err)
	}

	if len(rec.Recipe.Media.Items) > 0 {
		batch := &pgx.Batch{}
		for i, m := range rec.Recipe.Media.Items {
			q, a, err := psql.Insert("recipe_media").
				Columns("recipe_id", "position", "url", "role", "source").
				Values(rec.ID, i, m.URL, string(m.Role), m.Source).
				ToSql()
			if err != nil {
				return "", err
			}
			batch.Queue(q, a...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return "", fmt.Errorf("insert recipe media: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// FindByID retrieves a stored recipe.
func (r *RecipeRepoImpl) FindByID(ctx context.Context, id string) (*entity.StoredRecipe, error) {
	query, args, err := psql.Select("id", "COALESCE(owner_id, '')", "COALESCE(collection_id, '')", "COALESCE(pending_id, '')", "payload", "created_at").
		From("recipes").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		rec     entity.StoredRecipe
		payload []byte
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.Owner, &rec.CollectionID, &rec.PendingID, &payload, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.NewNotFoundError(fmt.Sprintf("recipe %s not found", id), nil)
		}
		return nil, err
	}
	rec.Recipe = &entity.ParsedRecipe{}
	if err := json.Unmarshal(payload, rec.Recipe); err != nil {
		return nil, fmt.Errorf("decode recipe %s: %w", id, err)
	}
	return &rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
