package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/repository"
)

// SetAlert stores the chat's alert, replacing any previous one.
func (r *Repository) SetAlert(ctx context.Context, alert models.TrackingAlert) error {
	const op = "repository.sqlite.SetAlert"

	createdAt := alert.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracking_alerts (chat_id, keyword, target_price, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			keyword = excluded.keyword,
			target_price = excluded.target_price,
			created_at = excluded.created_at`,
		alert.ChatID, alert.Keyword, alert.TargetPrice, createdAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetAlert returns the chat's alert.
func (r *Repository) GetAlert(ctx context.Context, chatID int64) (models.TrackingAlert, error) {
	const op = "repository.sqlite.GetAlert"

	row := r.db.QueryRowContext(
		ctx,
		"SELECT chat_id, keyword, target_price, created_at FROM tracking_alerts WHERE chat_id = ?",
		chatID,
	)

	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TrackingAlert{}, repository.ErrAlertNotFound
		}
		return models.TrackingAlert{}, fmt.Errorf("%s: %w", op, err)
	}

	return alert, nil
}

// DeleteAlert deletes the chat's alert. Deleting a missing alert is not an error.
func (r *Repository) DeleteAlert(ctx context.Context, chatID int64) error {
	const op = "repository.sqlite.DeleteAlert"
	_, err := r.db.ExecContext(ctx, "DELETE FROM tracking_alerts WHERE chat_id = ?", chatID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListAlerts returns all alerts ordered by chat id.
func (r *Repository) ListAlerts(ctx context.Context) ([]models.TrackingAlert, error) {
	const opn = "repository.sqlite.ListAlerts"
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT chat_id, keyword, target_price, created_at FROM tracking_alerts ORDER BY chat_id",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	defer rows.Close()

	var alerts []models.TrackingAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to scan alert: %w", opn, err)
		}
		alerts = append(alerts, alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return alerts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(row scanner) (models.TrackingAlert, error) {
	var (
		alert  models.TrackingAlert
		target sql.NullFloat64
	)
	if err := row.Scan(&alert.ChatID, &alert.Keyword, &target, &alert.CreatedAt); err != nil {
		return models.TrackingAlert{}, err
	}
	if target.Valid {
		alert.TargetPrice = &target.Float64
	}
	return alert, nil
}
