package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
)

// Postgres is the pgx-backed MetadataStore. Unlike the teacher's package
// level PgPool global, the pool is held on the struct and injected at
// construction so callers can run multiple stores (e.g. one per test) side
// by side.
type Postgres struct {
	pool *pgxpool.Pool
}

// PgConfig configures the Postgres connection pool.
type PgConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OpenPostgres parses dsn, opens a pool, pings it, and runs migrations.
func OpenPostgres(ctx context.Context, cfg PgConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	} else {
		poolConfig.MaxConns = 10
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	} else {
		poolConfig.MinConns = 2
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	} else {
		poolConfig.MaxConnLifetime = time.Hour
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	} else {
		poolConfig.MaxConnIdleTime = 30 * time.Minute
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("store: create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS policies (
			policy_id          TEXT NOT NULL,
			version            INT NOT NULL,
			type               TEXT NOT NULL,
			status             TEXT NOT NULL,
			target_environment TEXT NOT NULL,
			name               TEXT NOT NULL,
			description        TEXT NOT NULL DEFAULT '',
			content            JSONB NOT NULL,
			created_by         TEXT NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (policy_id, version)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_policies_active_lookup
			ON policies (type, target_environment, status)`,
		`CREATE TABLE IF NOT EXISTS cluster_endpoints (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, brokers TEXT[] NOT NULL,
			auth_method TEXT NOT NULL DEFAULT '', username TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL DEFAULT '', tls_ca_cert TEXT NOT NULL DEFAULT '',
			tls_cert TEXT NOT NULL DEFAULT '', tls_key TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS registry_endpoints (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, url TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '', password TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS storage_endpoints (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, endpoint_url TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '', bucket TEXT NOT NULL,
			access_key TEXT NOT NULL DEFAULT '', secret_key TEXT NOT NULL DEFAULT '',
			use_path_style BOOLEAN NOT NULL DEFAULT FALSE, is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS topic_metadata (
			topic_name TEXT PRIMARY KEY, owner TEXT NOT NULL, doc TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}', config JSONB NOT NULL,
			created_by TEXT NOT NULL, updated_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(), updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS schema_artifacts (
			subject TEXT NOT NULL, version INT NOT NULL, checksum TEXT NOT NULL,
			storage_url TEXT NOT NULL, change_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (subject, version)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_records (
			id TEXT PRIMARY KEY, change_id TEXT NOT NULL, action TEXT NOT NULL,
			target TEXT NOT NULL, actor TEXT NOT NULL, status TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '', snapshot JSONB NOT NULL DEFAULT '{}',
			team TEXT NOT NULL DEFAULT '', created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_change_id ON audit_records (change_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS metrics_snapshots (
			cluster_id TEXT NOT NULL, captured_at TIMESTAMPTZ NOT NULL, payload JSONB NOT NULL,
			PRIMARY KEY (cluster_id, captured_at)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) CreatePolicy(ctx context.Context, pol domain.Policy) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO policies (policy_id, version, type, status, target_environment, name, description, content, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (policy_id, version) DO UPDATE SET
			status = EXCLUDED.status, name = EXCLUDED.name, description = EXCLUDED.description, content = EXCLUDED.content
	`, pol.PolicyID, pol.Version, string(pol.Type), string(pol.Status), pol.TargetEnvironment,
		pol.Name, pol.Description, []byte(pol.Content), pol.CreatedBy)
	if err != nil {
		return apperrors.MetadataStore("create_policy", err)
	}
	return nil
}

func scanPolicy(row pgx.Row) (*domain.Policy, error) {
	var pol domain.Policy
	var content []byte
	err := row.Scan(&pol.PolicyID, &pol.Version, &pol.Type, &pol.Status, &pol.TargetEnvironment,
		&pol.Name, &pol.Description, &content, &pol.CreatedBy, &pol.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	pol.Content = content
	return &pol, nil
}

const selectPolicyColumns = `policy_id, version, type, status, target_environment, name, description, content, created_by, created_at`

func (p *Postgres) ActivePolicy(ctx context.Context, policyType domain.PolicyType, tier string) (*domain.Policy, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+selectPolicyColumns+` FROM policies
		WHERE type = $1 AND target_environment = $2 AND status = 'ACTIVE' LIMIT 1`, string(policyType), tier)
	pol, err := scanPolicy(row)
	if err != nil {
		return nil, apperrors.MetadataStore("active_policy", err)
	}
	return pol, nil
}

func (p *Postgres) GetPolicy(ctx context.Context, policyID string, version int) (*domain.Policy, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+selectPolicyColumns+` FROM policies WHERE policy_id = $1 AND version = $2`, policyID, version)
	pol, err := scanPolicy(row)
	if err != nil {
		return nil, apperrors.MetadataStore("get_policy", err)
	}
	return pol, nil
}

func (p *Postgres) ListPolicyVersions(ctx context.Context, policyID string) ([]domain.Policy, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+selectPolicyColumns+` FROM policies WHERE policy_id = $1 ORDER BY version`, policyID)
	if err != nil {
		return nil, apperrors.MetadataStore("list_policy_versions", err)
	}
	defer rows.Close()

	var out []domain.Policy
	for rows.Next() {
		pol, err := scanPolicy(rows)
		if err != nil {
			return nil, apperrors.MetadataStore("list_policy_versions", err)
		}
		out = append(out, *pol)
	}
	return out, rows.Err()
}

func (p *Postgres) ActivatePolicy(ctx context.Context, policyID string, version int) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return apperrors.MetadataStore("activate_policy", err)
	}
	defer tx.Rollback(ctx)

	var policyType, tier string
	err = tx.QueryRow(ctx, `SELECT type, target_environment FROM policies WHERE policy_id = $1 AND version = $2`,
		policyID, version).Scan(&policyType, &tier)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NotFound("policy version", fmt.Sprintf("%s@%d", policyID, version))
		}
		return apperrors.MetadataStore("activate_policy", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE policies SET status = 'ARCHIVED'
		WHERE type = $1 AND target_environment = $2 AND status = 'ACTIVE'`, policyType, tier); err != nil {
		return apperrors.MetadataStore("activate_policy", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE policies SET status = 'ACTIVE' WHERE policy_id = $1 AND version = $2`,
		policyID, version); err != nil {
		return apperrors.MetadataStore("activate_policy", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.MetadataStore("activate_policy", err)
	}
	return nil
}

func (p *Postgres) ArchivePolicy(ctx context.Context, policyID string, version int) error {
	tag, err := p.pool.Exec(ctx, `UPDATE policies SET status = 'ARCHIVED' WHERE policy_id = $1 AND version = $2`, policyID, version)
	if err != nil {
		return apperrors.MetadataStore("archive_policy", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("policy version", fmt.Sprintf("%s@%d", policyID, version))
	}
	return nil
}

func (p *Postgres) DeletePolicy(ctx context.Context, policyID string, version int) error {
	var status string
	err := p.pool.QueryRow(ctx, `SELECT status FROM policies WHERE policy_id = $1 AND version = $2`, policyID, version).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NotFound("policy version", fmt.Sprintf("%s@%d", policyID, version))
		}
		return apperrors.MetadataStore("delete_policy", err)
	}
	if status == string(domain.PolicyActive) {
		return apperrors.Invariant("cannot delete ACTIVE policy %s@%d; archive it first", policyID, version)
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM policies WHERE policy_id = $1 AND version = $2`, policyID, version); err != nil {
		return apperrors.MetadataStore("delete_policy", err)
	}
	return nil
}

func (p *Postgres) GetClusterEndpoint(ctx context.Context, id string) (*domain.ClusterEndpoint, error) {
	var ep domain.ClusterEndpoint
	err := p.pool.QueryRow(ctx, `SELECT id, name, brokers, auth_method, username, password,
		tls_ca_cert, tls_cert, tls_key, is_active FROM cluster_endpoints WHERE id = $1`, id).Scan(
		&ep.ID, &ep.Name, &ep.Brokers, &ep.AuthMethod, &ep.Username, &ep.Password,
		&ep.TLSCACert, &ep.TLSCert, &ep.TLSKey, &ep.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.MetadataStore("get_cluster_endpoint", err)
	}
	return &ep, nil
}

func (p *Postgres) GetRegistryEndpoint(ctx context.Context, id string) (*domain.RegistryEndpoint, error) {
	var ep domain.RegistryEndpoint
	err := p.pool.QueryRow(ctx, `SELECT id, name, url, username, password, is_active
		FROM registry_endpoints WHERE id = $1`, id).Scan(&ep.ID, &ep.Name, &ep.URL, &ep.Username, &ep.Password, &ep.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.MetadataStore("get_registry_endpoint", err)
	}
	return &ep, nil
}

func (p *Postgres) GetStorageEndpoint(ctx context.Context, id string) (*domain.StorageEndpoint, error) {
	var ep domain.StorageEndpoint
	err := p.pool.QueryRow(ctx, `SELECT id, name, endpoint_url, region, bucket, access_key, secret_key,
		use_path_style, is_active FROM storage_endpoints WHERE id = $1`, id).Scan(
		&ep.ID, &ep.Name, &ep.EndpointURL, &ep.Region, &ep.Bucket, &ep.AccessKey, &ep.SecretKey,
		&ep.UsePathStyle, &ep.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.MetadataStore("get_storage_endpoint", err)
	}
	return &ep, nil
}

func (p *Postgres) UpsertClusterEndpoint(ctx context.Context, ep domain.ClusterEndpoint) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO cluster_endpoints (id, name, brokers, auth_method, username, password, tls_ca_cert, tls_cert, tls_key, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, brokers=EXCLUDED.brokers, auth_method=EXCLUDED.auth_method,
			username=EXCLUDED.username, password=EXCLUDED.password, tls_ca_cert=EXCLUDED.tls_ca_cert,
			tls_cert=EXCLUDED.tls_cert, tls_key=EXCLUDED.tls_key, is_active=EXCLUDED.is_active
	`, ep.ID, ep.Name, ep.Brokers, ep.AuthMethod, ep.Username, ep.Password, ep.TLSCACert, ep.TLSCert, ep.TLSKey, ep.IsActive)
	if err != nil {
		return apperrors.MetadataStore("upsert_cluster_endpoint", err)
	}
	return nil
}

func (p *Postgres) UpsertRegistryEndpoint(ctx context.Context, ep domain.RegistryEndpoint) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO registry_endpoints (id, name, url, username, password, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, url=EXCLUDED.url, username=EXCLUDED.username,
			password=EXCLUDED.password, is_active=EXCLUDED.is_active
	`, ep.ID, ep.Name, ep.URL, ep.Username, ep.Password, ep.IsActive)
	if err != nil {
		return apperrors.MetadataStore("upsert_registry_endpoint", err)
	}
	return nil
}

func (p *Postgres) UpsertStorageEndpoint(ctx context.Context, ep domain.StorageEndpoint) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO storage_endpoints (id, name, endpoint_url, region, bucket, access_key, secret_key, use_path_style, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, endpoint_url=EXCLUDED.endpoint_url, region=EXCLUDED.region,
			bucket=EXCLUDED.bucket, access_key=EXCLUDED.access_key, secret_key=EXCLUDED.secret_key,
			use_path_style=EXCLUDED.use_path_style, is_active=EXCLUDED.is_active
	`, ep.ID, ep.Name, ep.EndpointURL, ep.Region, ep.Bucket, ep.AccessKey, ep.SecretKey, ep.UsePathStyle, ep.IsActive)
	if err != nil {
		return apperrors.MetadataStore("upsert_storage_endpoint", err)
	}
	return nil
}

func (p *Postgres) SaveTopicMetadata(ctx context.Context, row TopicMetadataRow) error {
	cfg, err := json.Marshal(row.Config)
	if err != nil {
		return apperrors.MetadataStore("save_topic_metadata", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO topic_metadata (topic_name, owner, doc, tags, config, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (topic_name) DO UPDATE SET owner=EXCLUDED.owner, doc=EXCLUDED.doc, tags=EXCLUDED.tags,
			config=EXCLUDED.config, updated_by=EXCLUDED.updated_by, updated_at=NOW()
	`, row.TopicName, row.Owner, row.Doc, row.Tags, cfg, row.CreatedBy, row.UpdatedBy)
	if err != nil {
		return apperrors.MetadataStore("save_topic_metadata", err)
	}
	return nil
}

func (p *Postgres) DeleteTopicMetadata(ctx context.Context, topicName string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM topic_metadata WHERE topic_name = $1`, topicName); err != nil {
		return apperrors.MetadataStore("delete_topic_metadata", err)
	}
	return nil
}

func scanTopicMetadataRow(row pgx.Row) (*TopicMetadataRow, error) {
	var r TopicMetadataRow
	var cfg []byte
	err := row.Scan(&r.TopicName, &r.Owner, &r.Doc, &r.Tags, &cfg, &r.CreatedBy, &r.UpdatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &r.Config); err != nil {
		return nil, err
	}
	return &r, nil
}

const selectTopicMetadataColumns = `topic_name, owner, doc, tags, config, created_by, updated_by, created_at, updated_at`

func (p *Postgres) GetTopicMetadata(ctx context.Context, topicName string) (*TopicMetadataRow, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+selectTopicMetadataColumns+` FROM topic_metadata WHERE topic_name = $1`, topicName)
	r, err := scanTopicMetadataRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.MetadataStore("get_topic_metadata", err)
	}
	return r, nil
}

func (p *Postgres) ListTopicMetadata(ctx context.Context) ([]TopicMetadataRow, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+selectTopicMetadataColumns+` FROM topic_metadata ORDER BY topic_name`)
	if err != nil {
		return nil, apperrors.MetadataStore("list_topic_metadata", err)
	}
	defer rows.Close()

	var out []TopicMetadataRow
	for rows.Next() {
		r, err := scanTopicMetadataRow(rows)
		if err != nil {
			return nil, apperrors.MetadataStore("list_topic_metadata", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveSchemaArtifact(ctx context.Context, a domain.SchemaArtifact) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO schema_artifacts (subject, version, checksum, storage_url, change_id)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (subject, version) DO UPDATE SET checksum=EXCLUDED.checksum,
			storage_url=EXCLUDED.storage_url, change_id=EXCLUDED.change_id
	`, a.Subject, a.Version, a.Checksum, a.StorageURL, a.ChangeID)
	if err != nil {
		return apperrors.MetadataStore("save_schema_artifact", err)
	}
	return nil
}

func (p *Postgres) DeleteSchemaArtifact(ctx context.Context, subject string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM schema_artifacts WHERE subject = $1`, subject); err != nil {
		return apperrors.MetadataStore("delete_schema_artifact", err)
	}
	return nil
}

func (p *Postgres) CountSchemaArtifactVersions(ctx context.Context, subject string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_artifacts WHERE subject = $1`, subject).Scan(&n)
	if err != nil {
		return 0, apperrors.MetadataStore("count_schema_artifact_versions", err)
	}
	return n, nil
}

func (p *Postgres) WriteAudit(ctx context.Context, rec domain.AuditRecord) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return apperrors.MetadataStore("write_audit", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO audit_records (id, change_id, action, target, actor, status, message, snapshot, team, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.ID, rec.ChangeID, rec.Action, rec.Target, rec.Actor, string(rec.Status), rec.Message, snapshot, rec.Team, rec.Timestamp)
	if err != nil {
		return apperrors.MetadataStore("write_audit", err)
	}
	return nil
}

func (p *Postgres) ListAudit(ctx context.Context, changeID string) ([]domain.AuditRecord, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, change_id, action, target, actor, status, message, snapshot, team, created_at
		FROM audit_records WHERE change_id = $1 ORDER BY created_at`, changeID)
	if err != nil {
		return nil, apperrors.MetadataStore("list_audit", err)
	}
	defer rows.Close()

	var out []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var snapshot []byte
		if err := rows.Scan(&rec.ID, &rec.ChangeID, &rec.Action, &rec.Target, &rec.Actor, &rec.Status,
			&rec.Message, &snapshot, &rec.Team, &rec.Timestamp); err != nil {
			return nil, apperrors.MetadataStore("list_audit", err)
		}
		if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
			return nil, apperrors.MetadataStore("list_audit", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveMetricsSnapshot(ctx context.Context, snap domain.MetricsSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return apperrors.MetadataStore("save_metrics_snapshot", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO metrics_snapshots (cluster_id, captured_at, payload) VALUES ($1,$2,$3)
		ON CONFLICT (cluster_id, captured_at) DO UPDATE SET payload = EXCLUDED.payload
	`, snap.ClusterID, snap.CapturedAt, payload)
	if err != nil {
		return apperrors.MetadataStore("save_metrics_snapshot", err)
	}
	return nil
}

func (p *Postgres) GetLatestMetricsSnapshot(ctx context.Context, clusterID string) (*domain.MetricsSnapshot, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT payload FROM metrics_snapshots WHERE cluster_id = $1
		ORDER BY captured_at DESC LIMIT 1`, clusterID).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.MetadataStore("get_latest_metrics_snapshot", err)
	}
	var snap domain.MetricsSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, apperrors.MetadataStore("get_latest_metrics_snapshot", err)
	}
	return &snap, nil
}

func (p *Postgres) DeleteMetricsSnapshotsOlderThan(ctx context.Context, before time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM metrics_snapshots WHERE captured_at < $1`, before)
	if err != nil {
		return 0, apperrors.MetadataStore("delete_metrics_snapshots_older_than", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) ListActiveClusterIDs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT id FROM cluster_endpoints WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, apperrors.MetadataStore("list_active_cluster_ids", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.MetadataStore("list_active_cluster_ids", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var _ MetadataStore = (*Postgres)(nil)
