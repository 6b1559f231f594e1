package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commonfund/escrowd/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresLedgerStore implements LedgerStore for PostgreSQL
type PostgresLedgerStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedgerStore creates a new PostgreSQL ledger store
func NewPostgresLedgerStore(
	host string,
	port int,
	database, user, password string,
	maxConns, minConns int,
	logger *zap.Logger,
) (LedgerStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d pool_min_conns=%d",
		host, port, database, user, password, maxConns, minConns,
	)

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresLedgerStore{
		pool:   pool,
		logger: logger,
	}, nil
}

// GetPool exposes the underlying connection pool for shared use
func (s *PostgresLedgerStore) GetPool() *pgxpool.Pool {
	return s.pool
}

// GetTenant retrieves a tenant by id
func (s *PostgresLedgerStore) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	query := `
		SELECT tenant_id, admin_id, active, total_deposited, total_spent, total_withdrawn, available_balance, created_at, updated_at
		FROM tenants
		WHERE tenant_id = $1
	`

	var tenant model.Tenant
	err := s.pool.QueryRow(ctx, query, tenantID).Scan(
		&tenant.TenantID,
		&tenant.AdminID,
		&tenant.Active,
		&tenant.TotalDeposited,
		&tenant.TotalSpent,
		&tenant.TotalWithdrawn,
		&tenant.AvailableBalance,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &tenant, nil
}

// CreateTenant stores a new tenant
func (s *PostgresLedgerStore) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	query := `
		INSERT INTO tenants (tenant_id, admin_id, active, total_deposited, total_spent, total_withdrawn, available_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		tenant.TenantID,
		tenant.AdminID,
		tenant.Active,
		tenant.TotalDeposited,
		tenant.TotalSpent,
		tenant.TotalWithdrawn,
		tenant.AvailableBalance,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)

	return err
}

// UpdateTenant replaces the stored tenant counters
func (s *PostgresLedgerStore) UpdateTenant(ctx context.Context, tenant *model.Tenant) error {
	query := `
		UPDATE tenants
		SET active = $2, total_deposited = $3, total_spent = $4, total_withdrawn = $5, available_balance = $6, updated_at = $7
		WHERE tenant_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		tenant.TenantID,
		tenant.Active,
		tenant.TotalDeposited,
		tenant.TotalSpent,
		tenant.TotalWithdrawn,
		tenant.AvailableBalance,
		time.Now(),
	)

	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// GetCommitment retrieves a commitment by id
func (s *PostgresLedgerStore) GetCommitment(ctx context.Context, commitmentID string) (*model.Commitment, error) {
	query := `
		SELECT commitment_id, tenant_id, created_by, contributor, token, amount, deadline, dispute_window_ns, spec_ref, evidence_ref, state, created_at, submitted_at
		FROM commitments
		WHERE commitment_id = $1
	`

	var commitment model.Commitment
	var disputeWindowNS int64
	var state string
	err := s.pool.QueryRow(ctx, query, commitmentID).Scan(
		&commitment.CommitmentID,
		&commitment.TenantID,
		&commitment.CreatedBy,
		&commitment.Contributor,
		&commitment.Token,
		&commitment.Amount,
		&commitment.Deadline,
		&disputeWindowNS,
		&commitment.SpecRef,
		&commitment.EvidenceRef,
		&state,
		&commitment.CreatedAt,
		&commitment.SubmittedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get commitment: %w", err)
	}

	commitment.DisputeWindow = time.Duration(disputeWindowNS)
	commitment.State = model.CommitmentState(state)

	return &commitment, nil
}

// CreateCommitment stores a new commitment
func (s *PostgresLedgerStore) CreateCommitment(ctx context.Context, commitment *model.Commitment) error {
	query := `
		INSERT INTO commitments (commitment_id, tenant_id, created_by, contributor, token, amount, deadline, dispute_window_ns, spec_ref, evidence_ref, state, created_at, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		commitment.CommitmentID,
		commitment.TenantID,
		commitment.CreatedBy,
		commitment.Contributor,
		commitment.Token,
		commitment.Amount,
		commitment.Deadline,
		int64(commitment.DisputeWindow),
		commitment.SpecRef,
		commitment.EvidenceRef,
		string(commitment.State),
		commitment.CreatedAt,
		commitment.SubmittedAt,
	)

	return err
}

// UpdateCommitment replaces the mutable fields of a commitment
func (s *PostgresLedgerStore) UpdateCommitment(ctx context.Context, commitment *model.Commitment) error {
	query := `
		UPDATE commitments
		SET evidence_ref = $2, state = $3, submitted_at = $4
		WHERE commitment_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		commitment.CommitmentID,
		commitment.EvidenceRef,
		string(commitment.State),
		commitment.SubmittedAt,
	)

	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListCommitmentsByState returns up to limit commitments in the given
// state, oldest creation first
func (s *PostgresLedgerStore) ListCommitmentsByState(ctx context.Context, state model.CommitmentState, limit int) ([]*model.Commitment, error) {
	query := `
		SELECT commitment_id, tenant_id, created_by, contributor, token, amount, deadline, dispute_window_ns, spec_ref, evidence_ref, state, created_at, submitted_at
		FROM commitments
		WHERE state = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, string(state), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	commitments := make([]*model.Commitment, 0)
	for rows.Next() {
		var commitment model.Commitment
		var disputeWindowNS int64
		var stateStr string
		if err := rows.Scan(
			&commitment.CommitmentID,
			&commitment.TenantID,
			&commitment.CreatedBy,
			&commitment.Contributor,
			&commitment.Token,
			&commitment.Amount,
			&commitment.Deadline,
			&disputeWindowNS,
			&commitment.SpecRef,
			&commitment.EvidenceRef,
			&stateStr,
			&commitment.CreatedAt,
			&commitment.SubmittedAt,
		); err != nil {
			return nil, err
		}
		commitment.DisputeWindow = time.Duration(disputeWindowNS)
		commitment.State = model.CommitmentState(stateStr)
		commitments = append(commitments, &commitment)
	}

	return commitments, rows.Err()
}

// GetDispute retrieves the dispute for a commitment
func (s *PostgresLedgerStore) GetDispute(ctx context.Context, commitmentID string) (*model.Dispute, error) {
	query := `
		SELECT commitment_id, disputer, stake, created_at, resolved, favors_contributor, resolved_at
		FROM disputes
		WHERE commitment_id = $1
	`

	var dispute model.Dispute
	err := s.pool.QueryRow(ctx, query, commitmentID).Scan(
		&dispute.CommitmentID,
		&dispute.Disputer,
		&dispute.Stake,
		&dispute.CreatedAt,
		&dispute.Resolved,
		&dispute.FavorsContributor,
		&dispute.ResolvedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}

	return &dispute, nil
}

// CreateDispute stores a new dispute
func (s *PostgresLedgerStore) CreateDispute(ctx context.Context, dispute *model.Dispute) error {
	query := `
		INSERT INTO disputes (commitment_id, disputer, stake, created_at, resolved, favors_contributor, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		dispute.CommitmentID,
		dispute.Disputer,
		dispute.Stake,
		dispute.CreatedAt,
		dispute.Resolved,
		dispute.FavorsContributor,
		dispute.ResolvedAt,
	)

	return err
}

// UpdateDispute records the resolution of a dispute
func (s *PostgresLedgerStore) UpdateDispute(ctx context.Context, dispute *model.Dispute) error {
	query := `
		UPDATE disputes
		SET resolved = $2, favors_contributor = $3, resolved_at = $4
		WHERE commitment_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		dispute.CommitmentID,
		dispute.Resolved,
		dispute.FavorsContributor,
		dispute.ResolvedAt,
	)

	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ContributorSettledValue returns the contributor's settled-value aggregate
func (s *PostgresLedgerStore) ContributorSettledValue(ctx context.Context, contributor string) (int64, error) {
	query := `SELECT total_value_settled FROM contributor_reputation WHERE contributor = $1`

	var value int64
	err := s.pool.QueryRow(ctx, query, contributor).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get settled value: %w", err)
	}

	return value, nil
}

// AddContributorSettledValue increments the contributor's settled-value aggregate
func (s *PostgresLedgerStore) AddContributorSettledValue(ctx context.Context, contributor string, amount int64) error {
	query := `
		INSERT INTO contributor_reputation (contributor, total_value_settled)
		VALUES ($1, $2)
		ON CONFLICT (contributor) DO UPDATE
		SET total_value_settled = contributor_reputation.total_value_settled + $2
	`

	_, err := s.pool.Exec(ctx, query, contributor, amount)
	return err
}

// Ping checks the database connection
func (s *PostgresLedgerStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresLedgerStore) Close() {
	s.pool.Close()
}
