package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"
)

type PostgresCalendarRepository struct {
	db *sql.DB
}

func NewPostgresCalendarRepository(db *sql.DB) *PostgresCalendarRepository {
	return &PostgresCalendarRepository{db: db}
}

const calendarColumns = `
	tenant_id::text,
	date,
	day_type,
	name,
	open_time,
	close_time,
	capacity_multiplier,
	notes
`

func scanCalendarDay(row interface{ Scan(...any) error }) (*domain.CalendarDay, error) {
	var d domain.CalendarDay
	err := row.Scan(
		&d.TenantID,
		&d.Date,
		&d.DayType,
		&d.Name,
		&d.OpenTime,
		&d.CloseTime,
		&d.CapacityMultiplier,
		&d.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDay 获取某日的覆盖条目
func (r *PostgresCalendarRepository) GetDay(ctx context.Context, tenantID string, date time.Time) (*domain.CalendarDay, error) {
	q := `
		SELECT ` + calendarColumns + `
		FROM calendar_days
		WHERE tenant_id = $1 AND date = $2::date
	`
	d, err := scanCalendarDay(r.db.QueryRowContext(ctx, q, tenantID, date))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListRange 获取 [from, to] 的全部覆盖条目
func (r *PostgresCalendarRepository) ListRange(ctx context.Context, tenantID string, from, to time.Time) ([]*domain.CalendarDay, error) {
	q := `
		SELECT ` + calendarColumns + `
		FROM calendar_days
		WHERE tenant_id = $1 AND date >= $2::date AND date <= $3::date
		ORDER BY date
	`
	rows, err := r.db.QueryContext(ctx, q, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.CalendarDay{}
	for rows.Next() {
		d, err := scanCalendarDay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// WorkingDaysMask 获取租户默认工作日掩码（tenant_settings 表；未配置时为周一至周五）
func (r *PostgresCalendarRepository) WorkingDaysMask(ctx context.Context, tenantID string) (domain.WorkingDaysMask, error) {
	q := `
		SELECT working_days_mask
		FROM tenant_settings
		WHERE tenant_id = $1
	`
	var mask int
	err := r.db.QueryRowContext(ctx, q, tenantID).Scan(&mask)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.DefaultWorkingDaysMask, nil
		}
		return 0, err
	}
	return domain.WorkingDaysMask(mask), nil
}
