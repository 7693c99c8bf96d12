package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/SheetMetalConnect/eryxon-flow-sub001/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func operationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"operation_id", "tenant_id", "part_id", "cell_id", "cell_name",
		"operation_name", "sequence", "status", "estimated_time",
		"planned_start", "planned_end", "created_at",
	})
}

func TestGetOperation_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresOperationsRepository(db)

	tenantID := uuid.New().String()
	opID := uuid.New().String()

	rows := operationRows().AddRow(
		opID, tenantID, "p1", "c1", "Welding",
		"Weld seam", 20, domain.StatusInProgress, 90,
		nil, nil, time.Now(),
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, opID).
		WillReturnRows(rows)

	op, err := repo.GetOperation(context.Background(), tenantID, opID)

	require.NoError(t, err)
	assert.Equal(t, opID, op.OperationID)
	assert.Equal(t, "Welding", op.CellName)
	assert.Equal(t, domain.StatusInProgress, op.Status)
	assert.Equal(t, 90, op.EstimatedTime)
}

func TestGetOperation_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresOperationsRepository(db)

	mock.ExpectQuery(`SELECT`).
		WithArgs("t1", "missing").
		WillReturnError(sql.ErrNoRows)

	op, err := repo.GetOperation(context.Background(), "t1", "missing")

	assert.Nil(t, op)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByJob_ReturnsAllRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresOperationsRepository(db)

	tenantID := uuid.New().String()
	jobID := uuid.New().String()

	rows := operationRows().
		AddRow("op1", tenantID, "p1", "c1", "Laser", nil, 10, domain.StatusCompleted, 30, nil, nil, time.Now()).
		AddRow("op2", tenantID, "p1", "c2", "Welding", nil, 20, domain.StatusInProgress, 60, nil, nil, time.Now())

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, jobID).
		WillReturnRows(rows)

	ops, err := repo.ListByJob(context.Background(), tenantID, jobID)

	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "Laser", ops[0].CellName)
	assert.Equal(t, "Welding", ops[1].CellName)
}

func TestListPlannedForCellDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresOperationsRepository(db)

	tenantID := uuid.New().String()
	cellID := uuid.New().String()
	date := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	rows := operationRows().
		AddRow("op1", tenantID, "p1", cellID, "Welding", nil, 10, domain.StatusNotStarted, 120,
			time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC), nil, time.Now())

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, cellID, date).
		WillReturnRows(rows)

	ops, err := repo.ListPlannedForCellDate(context.Background(), tenantID, cellID, date)

	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, 120, ops[0].EstimatedTime)
}

func TestJobIDForPart(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresOperationsRepository(db)

	jobID := uuid.New().String()
	mock.ExpectQuery(`SELECT job_id`).
		WithArgs("t1", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"job_id"}).AddRow(jobID))

	got, err := repo.JobIDForPart(context.Background(), "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, jobID, got)

	mock.ExpectQuery(`SELECT job_id`).
		WithArgs("t1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.JobIDForPart(context.Background(), "t1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllocationsUpsert_GeneratesID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAllocationsRepository(db)

	a := &domain.DayAllocation{
		TenantID:       "t1",
		OperationID:    "op1",
		CellID:         "c1",
		Date:           time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		HoursAllocated: 2,
	}

	mock.ExpectExec(`INSERT INTO day_allocations`).
		WithArgs(sqlmock.AnyArg(), "t1", "op1", "c1", a.Date, 2.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), a))
	assert.NotEmpty(t, a.AllocationID)
}
