package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS todo (
	id uuid PRIMARY KEY,
	value varchar NOT NULL
)`

// PostgresRepository 把待办事项存入 todo 表。
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// OpenPostgres 建立连接池、确认连通并执行建表。
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	repo := &PostgresRepository{pool: pool}
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Migrate 幂等地创建 todo 表。
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate todo table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Todo, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, value FROM todo`)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	items := make([]Todo, 0)
	for rows.Next() {
		var item Todo
		if err := rows.Scan(&item.ID, &item.Value); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Create(ctx context.Context, value string) (Todo, error) {
	if err := Validate(value); err != nil {
		return Todo{}, err
	}
	item := Todo{ID: uuid.New(), Value: value}
	if _, err := r.pool.Exec(ctx, `INSERT INTO todo (id, value) VALUES ($1, $2)`, item.ID, item.Value); err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
