package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/resolvr/backend/internal/models"
)

const PopularArticles = 5

type KnowledgeBase struct {
	Store ArticleStore
	Clock Clock
}

type ArticleRequest struct {
	Title   string   `json:"title" validate:"required,max=300"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags"`
}

func (k *KnowledgeBase) Add(ctx context.Context, req ArticleRequest) (models.Article, error) {
	a := models.Article{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Tags:      normalizeTags(req.Tags),
		CreatedAt: k.Clock.now(),
	}
	if err := k.Store.InsertArticle(ctx, a); err != nil {
		return models.Article{}, err
	}
	return a, nil
}

func (k *KnowledgeBase) Search(ctx context.Context, query string) ([]models.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Article{}, nil
	}
	return k.Store.SearchArticles(ctx, query)
}

func (k *KnowledgeBase) Popular(ctx context.Context) ([]models.Article, error) {
	return k.Store.PopularArticles(ctx, PopularArticles)
}

func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range tags {
		for _, p := range strings.Split(t, ",") {
			p = strings.ToLower(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
