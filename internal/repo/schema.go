package repo

const schema = `
DO $$ BEGIN
	CREATE TYPE evaluation_status AS ENUM ('PENDING', 'RUNNING', 'SUCCEEDED', 'FAILED');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;

CREATE TABLE IF NOT EXISTS scripts (
	id          uuid PRIMARY KEY,
	name        text NOT NULL UNIQUE,
	description text,
	is_active   boolean NOT NULL DEFAULT true,
	created_at  timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS script_versions (
	script_id  uuid NOT NULL REFERENCES scripts(id) ON DELETE CASCADE,
	version    integer NOT NULL,
	source     text NOT NULL,
	workflows  jsonb NOT NULL DEFAULT '[]',
	created_at timestamptz NOT NULL DEFAULT NOW(),
	PRIMARY KEY (script_id, version)
);

CREATE TABLE IF NOT EXISTS evaluations (
	id              uuid PRIMARY KEY,
	script_id       uuid NOT NULL REFERENCES scripts(id) ON DELETE CASCADE,
	version         integer NOT NULL,
	workflow        text,
	inputs          jsonb,
	status          evaluation_status NOT NULL DEFAULT 'PENDING',
	outputs         jsonb,
	error           text,
	idempotency_key text,
	started_at      timestamptz,
	finished_at     timestamptz,
	created_at      timestamptz NOT NULL DEFAULT NOW(),
	UNIQUE (script_id, idempotency_key)
);

CREATE INDEX IF NOT EXISTS evaluations_status_idx ON evaluations (status, created_at);

CREATE TABLE IF NOT EXISTS schedules (
	id                 uuid PRIMARY KEY,
	script_id          uuid NOT NULL REFERENCES scripts(id) ON DELETE CASCADE,
	workflow           text NOT NULL DEFAULT '',
	name               text NOT NULL,
	cron_expr          text NOT NULL DEFAULT '',
	interval_sec       integer NOT NULL DEFAULT 0,
	timezone           text NOT NULL DEFAULT 'UTC',
	enabled            boolean NOT NULL DEFAULT true,
	next_due_at        timestamptz,
	last_run_at        timestamptz,
	last_evaluation_id uuid,
	inputs             jsonb NOT NULL DEFAULT '{}',
	created_at         timestamptz NOT NULL DEFAULT NOW(),
	updated_at         timestamptz NOT NULL DEFAULT NOW(),
	CHECK (cron_expr <> '' OR interval_sec > 0)
);

CREATE INDEX IF NOT EXISTS schedules_due_idx ON schedules (next_due_at) WHERE enabled;
`
