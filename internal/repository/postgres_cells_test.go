package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockCellsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresCellsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresCellsRepository(db)
}

func TestGetCell_Success(t *testing.T) {
	db, mock, repo := setupMockCellsDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	cellID := uuid.New().String()

	rows := sqlmock.NewRows([]string{
		"cell_id", "tenant_id", "cell_name", "sequence", "color",
		"capacity_hours_per_day", "wip_limit", "enforce_limit",
		"wip_warning_threshold", "created_at", "updated_at",
	}).AddRow(
		cellID, tenantID, "Welding", 2, "#FF9900",
		8.0, 3, true,
		nil, nil, nil,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, cellID).
		WillReturnRows(rows)

	cell, err := repo.GetCell(ctx, tenantID, cellID)

	require.NoError(t, err)
	assert.Equal(t, cellID, cell.CellID)
	assert.Equal(t, "Welding", cell.CellName)
	assert.Equal(t, 8.0, cell.CapacityHoursPerDay)
	assert.True(t, cell.WipLimit.Valid)
	assert.Equal(t, int64(3), cell.WipLimit.Int64)
	assert.True(t, cell.EnforceLimit)
	assert.False(t, cell.WipWarningThreshold.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCell_NotFound(t *testing.T) {
	db, mock, repo := setupMockCellsDB(t)
	defer db.Close()

	tenantID := uuid.New().String()
	cellID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, cellID).
		WillReturnError(sql.ErrNoRows)

	cell, err := repo.GetCell(context.Background(), tenantID, cellID)

	assert.Nil(t, cell)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCells_OrderedBySequence(t *testing.T) {
	db, mock, repo := setupMockCellsDB(t)
	defer db.Close()

	tenantID := uuid.New().String()

	rows := sqlmock.NewRows([]string{
		"cell_id", "tenant_id", "cell_name", "sequence", "color",
		"capacity_hours_per_day", "wip_limit", "enforce_limit",
		"wip_warning_threshold", "created_at", "updated_at",
	}).
		AddRow("c1", tenantID, "Laser", 1, "#3366FF", 10.0, nil, false, nil, nil, nil).
		AddRow("c2", tenantID, "Welding", 2, "#FF9900", 8.0, 3, true, nil, nil, nil)

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID).
		WillReturnRows(rows)

	cells, err := repo.ListCells(context.Background(), tenantID)

	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, "Laser", cells[0].CellName)
	assert.False(t, cells[0].WipLimit.Valid)
	assert.Equal(t, "Welding", cells[1].CellName)
}

func TestCountAtCell(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresPartsRepository(db)

	tenantID := uuid.New().String()
	cellID := uuid.New().String()

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(tenantID, cellID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountAtCell(context.Background(), tenantID, cellID)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
