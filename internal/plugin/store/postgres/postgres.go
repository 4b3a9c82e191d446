package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/spaces-sync-service/internal/config"
	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/plugin/store/gormstore"
	registrymigrate "github.com/chirino/spaces-sync-service/internal/registry/migrate"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"github.com/chirino/spaces-sync-service/internal/security"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "postgres",
		Loader: func(ctx context.Context) (registrystore.Store, error) {
			cfg := config.FromContext(ctx)
			db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{})
			if err != nil {
				return nil, fmt.Errorf("failed to connect to postgres: %w", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return nil, fmt.Errorf("failed to get underlying db: %w", err)
			}
			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
			if security.DBPoolMaxConnections != nil {
				security.DBPoolMaxConnections.Set(float64(cfg.DBMaxOpenConns))
			}

			// Periodically update the open connections gauge.
			go func() {
				ticker := time.NewTicker(15 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if security.DBPoolOpenConnections != nil {
							security.DBPoolOpenConnections.Set(float64(sqlDB.Stats().OpenConnections))
						}
					}
				}
			}()

			return &Store{Store: gormstore.New(db)}, nil
		},
	})

	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &postgresMigrator{}})
}

type postgresMigrator struct{}

func (m *postgresMigrator) Name() string { return "postgres-schema" }
func (m *postgresMigrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg != nil && !cfg.DatastoreMigrateAtStart {
		return nil
	}
	if cfg.DatastoreType != "" && cfg.DatastoreType != "postgres" {
		return nil // skip if not using postgres
	}
	log.Info("Running migration", "name", m.Name())
	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("migration: failed to connect: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if _, err := sqlDB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migration: failed to execute schema: %w", err)
	}
	log.Info("Postgres schema migration complete")
	return nil
}

// Store wraps the shared GORM store to translate postgres driver errors into
// the store error types the route layer knows how to render.
type Store struct {
	*gormstore.Store
}

const uniqueViolation = "23505"

func mapConflict(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &registrystore.ConflictError{Message: msg}
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if err := s.Store.CreateUser(ctx, user); err != nil {
		return mapConflict(err, fmt.Sprintf("a user with email %q already exists", user.Email))
	}
	return nil
}

func (s *Store) CreateMember(ctx context.Context, member *model.SpaceMember) error {
	if err := s.Store.CreateMember(ctx, member); err != nil {
		return mapConflict(err, fmt.Sprintf("user %d is already a member of space %s", member.UserID, member.SpaceID))
	}
	return nil
}

func (s *Store) CreateInvite(ctx context.Context, invite *model.Invite) error {
	if err := s.Store.CreateInvite(ctx, invite); err != nil {
		return mapConflict(err, fmt.Sprintf("invite %s already exists", invite.ID))
	}
	return nil
}
