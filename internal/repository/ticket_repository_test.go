package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStopped = errors.New("stopped")

type errRow struct{}

func (errRow) Scan(...any) error { return errStopped }

// captureDB records the first statement and fails it.
type captureDB struct {
	sql  string
	args []any
}

func (c *captureDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errStopped
}

func (c *captureDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errStopped
}

func (c *captureDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.sql, c.args = sql, args
	return errRow{}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% done`, escapeLike("100% done"))
	assert.Equal(t, `snake\_case`, escapeLike("snake_case"))
	assert.Equal(t, `c:\\temp`, escapeLike(`c:\temp`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestSearchTitleMatchesLiterally(t *testing.T) {
	db := &captureDB{}
	title := "  50%_Off\\ "

	_, _, err := NewTicketRepository(db).Search(context.Background(), TicketFilter{ViewerID: 1, Title: &title})
	require.ErrorIs(t, err, errStopped)

	assert.Contains(t, db.sql, `LOWER(t.title) LIKE $2 ESCAPE '\'`)
	require.Len(t, db.args, 2)
	assert.Equal(t, `%50\%\_off\\%`, db.args[1])
}
