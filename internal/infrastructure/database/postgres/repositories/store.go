package repositories

import (
	"context"

	"github.com/jasmincar/milo-lab/internal/infrastructure/database/postgres"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
)

// Store bundles the row store and the catalog over one connection.
type Store struct {
	*DissociationRepository
	*CompoundRepository
	conn *postgres.Connection
}

// NewStore wires both repositories to conn.
func NewStore(conn *postgres.Connection, log logging.Logger) *Store {
	return &Store{
		DissociationRepository: NewDissociationRepository(conn, log),
		CompoundRepository:     NewCompoundRepository(conn, log),
		conn:                   conn,
	}
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

//Personal.AI order the ending
