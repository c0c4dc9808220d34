package ehsasid

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "EH190042", Format(2019, 42))
	assert.Equal(t, "EH150001", Format(2015, 1))
	assert.Equal(t, "EH001234", Format(2000, 1234))
	// Counters past four digits keep growing rather than wrapping.
	assert.Equal(t, "EH9910000", Format(1999, 10000))
}

func TestIssue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	issuer := New(db)

	mock.ExpectQuery("INSERT INTO ehsas_counters").
		WithArgs(2019).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(42))

	id, err := issuer.Issue(context.Background(), 2019)
	require.NoError(t, err)
	assert.Equal(t, "EH190042", id)
	require.NoError(t, mock.ExpectationsWereMet())
}
