package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadRowColumns = []string{"id", "session_id", "name", "phone", "email", "company_name", "region", "plan_name", "plan_type", "lives", "monthly_value", "created_at"}

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "sess-1", "Maria Silva", "11999990000", "maria@example.com", "", "Caieiras", "Plena Plus", "family", 4, 852.15).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	lead, err := NewPostgresRepository(mock).Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, created, lead.CreatedAt)
	_, err = uuid.Parse(lead.ID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryCreateValidatesFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresRepository(mock).Create(context.Background(), &CreateLeadRequest{})
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New().String()
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(leadRowColumns).
			AddRow(id, "sess-1", "Maria Silva", "11999990000", "maria@example.com", "", "Caieiras", "Plena Plus", "family", 4, 852.15, created))

	lead, err := NewPostgresRepository(mock).GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, lead.ID)
	assert.Equal(t, 852.15, lead.MonthlyValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrLeadNotFound)

	id := uuid.New().String()
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrLeadNotFound)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").WithArgs(id).WillReturnError(errors.New("connection reset"))
	_, err = repo.GetByID(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLeadNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM leads ORDER BY created_at DESC").
		WithArgs(50, 0).
		WillReturnRows(pgxmock.NewRows(leadRowColumns).
			AddRow(uuid.New().String(), "sess-2", "Bruno", "11988887777", "", "Acme", "Perus", "Plena Essential", "business", 3, 624.0, created.Add(time.Hour)).
			AddRow(uuid.New().String(), "sess-1", "Maria Silva", "11999990000", "maria@example.com", "", "Caieiras", "Plena Plus", "family", 4, 852.15, created))

	leads, err := NewPostgresRepository(mock).List(context.Background(), ListLeadsFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Acme", leads[0].CompanyName)
	assert.Equal(t, "sess-1", leads[1].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
