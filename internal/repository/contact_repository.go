package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reshamsu/dlink-colombo/internal/model"
)

// ContactRepo stores inquiries from the public contact form.
type ContactRepo struct{ DB *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{DB: db} }

// Create inserts c and sets its ID.
func (r *ContactRepo) Create(ctx context.Context, c *model.ContactInquiry) error {
	reasons := c.BestReason
	if reasons == nil {
		reasons = model.StringList{}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO contact (full_name, email, phone, best_reason, inquiry_subject, inquiry_message) VALUES (?,?,?,?,?,?)",
		c.FullName, c.Email, c.Phone, reasons, c.InquirySubject, c.InquiryMessage)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// List returns inquiries newest first.
func (r *ContactRepo) List(ctx context.Context, limit, offset int) ([]model.ContactInquiry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, full_name, email, phone, best_reason, inquiry_subject, inquiry_message, created_at FROM contact ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list contact: %w", err)
	}
	defer rows.Close()

	out := []model.ContactInquiry{}
	for rows.Next() {
		var c model.ContactInquiry
		if err := rows.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.BestReason,
			&c.InquirySubject, &c.InquiryMessage, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
