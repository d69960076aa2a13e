package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"round-curator/internal/round"
)

func newMockStore(t *testing.T) (*GormStore, *gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewGormStore(gdb), gdb, mock
}

var roundColumns = []string{
	"id", "owner", "name", "time_limit", "base_fee_percent", "fee_multiplier",
	"ai_moderation", "deposit_share_percent", "timeout_timestamp", "total_deposit",
	"active", "next_proposal_id", "depositors", "contents", "proposals",
}

func TestGormStore_Get(t *testing.T) {
	store, _, mock := newMockStore(t)
	ctx := context.Background()
	key := round.Key{Owner: "OWNER", Name: "memes"}

	rows := sqlmock.NewRows(roundColumns).AddRow(
		1, "OWNER", "memes", 3600, 10, 1,
		false, 50, 1_700_003_600, 40,
		true, 1,
		`[{"identity":"ALICE","amount":40,"deposited_at":1700000000,"locked_until":1700003600}]`,
		`null`,
		`null`,
	)
	mock.ExpectQuery(`SELECT \* FROM "rounds" WHERE owner = \$1 AND name = \$2`).
		WillReturnRows(rows)

	s, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, s.Key())
	assert.Equal(t, uint64(3600), s.Config.TimeLimit)
	assert.Equal(t, uint64(40), s.TotalDeposit)
	assert.True(t, s.Active)
	require.Len(t, s.Depositors, 1)
	assert.Equal(t, round.Identity("ALICE"), s.Depositors[0].Identity)
	assert.Equal(t, uint64(40), s.Depositors[0].Amount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetNotFound(t *testing.T) {
	store, _, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "rounds"`).
		WillReturnRows(sqlmock.NewRows(roundColumns))

	_, err := store.Get(context.Background(), round.Key{Owner: "OWNER", Name: "gone"})
	assert.ErrorIs(t, err, ErrRoundNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Due(t *testing.T) {
	store, _, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .*"owner".*"name".* FROM "rounds" WHERE timeout_timestamp <= \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"owner", "name"}).
			AddRow("OWNER", "memes").
			AddRow("BOB", "cats"))

	keys, err := store.Due(context.Background(), 1_700_003_600)
	require.NoError(t, err)
	assert.Equal(t, []round.Key{
		{Owner: "OWNER", Name: "memes"},
		{Owner: "BOB", Name: "cats"},
	}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTx_TransferInsufficient(t *testing.T) {
	_, gdb, mock := newMockStore(t)
	tx := &gormTx{tx: gdb}

	mock.ExpectExec(`UPDATE "balances" SET .* WHERE account = \$\d+ AND amount >= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := tx.Transfer(context.Background(), "ALICE", "round:OWNER/memes", 10)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTx_TransferZeroIsNoop(t *testing.T) {
	_, gdb, mock := newMockStore(t)
	tx := &gormTx{tx: gdb}

	require.NoError(t, tx.Transfer(context.Background(), "ALICE", "BOB", 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}
