// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"fmt"
)

// Schema 数据库表结构定义，供初始化工具使用
const Schema = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS projects (
	id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	prompt          TEXT NOT NULL,
	preview_url     TEXT,
	conversation_id TEXT,
	status          VARCHAR(32) NOT NULL DEFAULT 'active',
	deployment_status VARCHAR(32) NOT NULL DEFAULT 'none',
	deployment_id   TEXT,
	deployment_url  TEXT,
	error_history   JSONB NOT NULL DEFAULT '[]',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects (status);
CREATE INDEX IF NOT EXISTS idx_projects_updated_at ON projects (updated_at DESC);

CREATE TABLE IF NOT EXISTS chat_messages (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	project_id  UUID NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
	role        VARCHAR(16) NOT NULL,
	content     TEXT NOT NULL,
	metadata    JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_project ON chat_messages (project_id, created_at);

CREATE TABLE IF NOT EXISTS site_files (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	project_id  UUID NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
	version_no  INT NOT NULL,
	filename    TEXT NOT NULL,
	content     TEXT NOT NULL,
	language    VARCHAR(32) NOT NULL DEFAULT '',
	is_current  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (project_id, version_no, filename)
);

CREATE INDEX IF NOT EXISTS idx_site_files_current ON site_files (project_id) WHERE is_current;
`

// InitSchema 初始化数据库表结构
func (c *Client) InitSchema(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.InitSchema")
	defer span.End()

	if _, err := c.db.ExecContext(ctx, Schema); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to init schema: %w", err)
	}

	return nil
}
