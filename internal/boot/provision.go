package boot

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/paperdex/paperdex/db"
	"github.com/paperdex/paperdex/internal/database"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/paper"
)

// StoreBootstrapper initializes the persistent store by applying the
// embedded migrations. Safe to re-run: already-applied migrations are
// no-ops.
type StoreBootstrapper struct {
	url string
}

// NewStoreBootstrapper creates a StoreBootstrapper for the given database
// URL.
func NewStoreBootstrapper(url string) *StoreBootstrapper {
	return &StoreBootstrapper{url: url}
}

// InitStore implements StoreInitializer.
func (b *StoreBootstrapper) InitStore(context.Context) error {
	if err := db.Migrate(b.url); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// AdminAccount describes the bootstrap administrative account.
type AdminAccount struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

// AdminBootstrapper creates the default administrative account. It opens its
// own short-lived connection because it runs before any long-lived pool
// exists.
type AdminBootstrapper struct {
	dsn     string
	account AdminAccount
	logger  log.Logger
}

// NewAdminBootstrapper creates an AdminBootstrapper. logger may be nil.
func NewAdminBootstrapper(dsn string, account AdminAccount, logger log.Logger) *AdminBootstrapper {
	if logger == nil {
		logger = log.NewNop()
	}
	return &AdminBootstrapper{dsn: dsn, account: account, logger: logger}
}

// EnsureAdmin implements AdminProvisioner. Returns paper.ErrDuplicateUser
// when the account already exists.
func (a *AdminBootstrapper) EnsureAdmin(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(a.account.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	pool, err := database.Connect(ctx, a.dsn)
	if err != nil {
		return fmt.Errorf("connect for admin provisioning: %w", err)
	}
	defer pool.Close()

	store := paper.NewStore(pool, a.logger)
	return store.CreateUser(ctx, &paper.User{
		Username:     a.account.Username,
		FirstName:    a.account.FirstName,
		LastName:     a.account.LastName,
		Email:        a.account.Email,
		Role:         paper.RoleAdmin,
		PasswordHash: string(hash),
	})
}
