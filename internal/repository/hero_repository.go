package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/reshamsu/dlink-colombo/internal/model"
)

var ErrHeroNotFound = errors.New("hero not found")

// HeroRepo reads page banners.
type HeroRepo struct{ DB *sql.DB }

func NewHeroRepo(db *sql.DB) *HeroRepo { return &HeroRepo{DB: db} }

// ForPage returns the oldest banner whose page_type array contains page.
func (r *HeroRepo) ForPage(ctx context.Context, page string) (model.Hero, error) {
	needle, _ := json.Marshal(page)
	var h model.Hero
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, title, subtitle, page_type, image_urls, created_at FROM hero WHERE JSON_CONTAINS(page_type, ?) ORDER BY created_at ASC, id ASC LIMIT 1",
		string(needle)).Scan(&h.ID, &h.Title, &h.Subtitle, &h.PageType, &h.ImageURLs, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Hero{}, ErrHeroNotFound
	}
	return h, err
}
