package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGormDB opens a GORM connection backed by sqlmock
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func newMockAccountRepository(t *testing.T) (*GormAccountRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	gormDB, mock, mockDB := newMockGormDB(t)
	return NewGormAccountRepository(gormDB), mock, mockDB
}

func accountColumns() []string {
	return []string{"id", "created_at", "updated_at", "version", "tenant_id",
		"code", "name", "type", "role", "jurisdiction", "active"}
}

func TestGormAccountRepository_FindByIDForTenant(t *testing.T) {
	t.Run("finds existing account", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows(accountColumns()).
			AddRow(accountID, time.Now(), time.Now(), 1, tenantID,
				"1200", "Accounts Receivable", "ASSET", "AR", "", true)

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id = \$1 AND tenant_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(accountID, tenantID, 1).
			WillReturnRows(rows)

		account, err := repo.FindByIDForTenant(context.Background(), tenantID, accountID)

		assert.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, accountID, account.ID)
		assert.Equal(t, "1200", account.Code)
		assert.Equal(t, ledger.RoleAccountsReceivable, account.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account is nil, not an error", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id = \$1 AND tenant_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(accountID, tenantID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		account, err := repo.FindByIDForTenant(context.Background(), tenantID, accountID)

		assert.NoError(t, err)
		assert.Nil(t, account)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_FindByRole(t *testing.T) {
	t.Run("finds active role mapping", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows(accountColumns()).
			AddRow(accountID, time.Now(), time.Now(), 1, tenantID,
				"2201", "VAT Output AE", "LIABILITY", "TAX_OUTPUT", "AE", true)

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE tenant_id = \$1 AND role = \$2 AND jurisdiction = \$3 AND active = \$4 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, "TAX_OUTPUT", "AE", true, 1).
			WillReturnRows(rows)

		account, err := repo.FindByRole(context.Background(), tenantID, ledger.RoleTaxOutput, "AE")

		assert.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, "2201", account.Code)
		assert.Equal(t, "AE", account.Jurisdiction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unmapped role is nil", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE tenant_id = \$1 AND role = \$2 AND jurisdiction = \$3 AND active = \$4 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, "BANK", "", true, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		account, err := repo.FindByRole(context.Background(), tenantID, ledger.RoleBank, "")

		assert.NoError(t, err)
		assert.Nil(t, account)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_FindAllForTenant(t *testing.T) {
	t.Run("lists accounts ordered by code", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()

		rows := sqlmock.NewRows(accountColumns()).
			AddRow(uuid.New(), time.Now(), time.Now(), 1, tenantID,
				"1200", "Accounts Receivable", "ASSET", "AR", "", true).
			AddRow(uuid.New(), time.Now(), time.Now(), 1, tenantID,
				"4000", "Revenue", "REVENUE", "REVENUE", "", true)

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE tenant_id = \$1 ORDER BY code ASC`).
			WithArgs(tenantID).
			WillReturnRows(rows)

		accounts, err := repo.FindAllForTenant(context.Background(), tenantID)

		assert.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "1200", accounts[0].Code)
		assert.Equal(t, "4000", accounts[1].Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_Save(t *testing.T) {
	t.Run("saves account", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		account, err := ledger.NewAccount(tenantID, "1200", "Accounts Receivable",
			ledger.AccountTypeAsset, ledger.RoleAccountsReceivable, "")
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "accounts" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Save(context.Background(), account)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
