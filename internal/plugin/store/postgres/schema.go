package postgres

// schemaSQL creates every table the postgres store backend reads and
// writes directly. GORM's AutoMigrate could produce most of these, but the
// generated tsvector column and its GIN index need raw DDL, so the whole
// schema is kept together here rather than split across two migration
// paths.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversation_groups (
	id         uuid PRIMARY KEY,
	created_at timestamptz NOT NULL DEFAULT now(),
	deleted_at timestamptz
);

CREATE TABLE IF NOT EXISTS conversations (
	id                         uuid PRIMARY KEY,
	title                      bytea,
	owner_user_id              text NOT NULL,
	metadata                   jsonb NOT NULL DEFAULT '{}',
	conversation_group_id      uuid NOT NULL REFERENCES conversation_groups(id) ON DELETE CASCADE,
	forked_at_entry_id         uuid,
	forked_at_conversation_id  uuid,
	created_at                 timestamptz NOT NULL DEFAULT now(),
	updated_at                 timestamptz NOT NULL DEFAULT now(),
	vectorized_at               timestamptz,
	deleted_at                  timestamptz
);

CREATE INDEX IF NOT EXISTS conversations_group_idx ON conversations (conversation_group_id);
CREATE INDEX IF NOT EXISTS conversations_owner_idx ON conversations (owner_user_id);

CREATE TABLE IF NOT EXISTS conversation_memberships (
	conversation_group_id uuid NOT NULL REFERENCES conversation_groups(id) ON DELETE CASCADE,
	user_id                text NOT NULL,
	access_level           text NOT NULL,
	created_at             timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (conversation_group_id, user_id)
);

CREATE INDEX IF NOT EXISTS conversation_memberships_user_idx ON conversation_memberships (user_id);

CREATE TABLE IF NOT EXISTS entries (
	id                     uuid NOT NULL,
	conversation_id        uuid NOT NULL,
	conversation_group_id  uuid NOT NULL REFERENCES conversation_groups(id) ON DELETE CASCADE,
	user_id                text,
	client_id              text,
	channel                text NOT NULL,
	epoch                  bigint,
	content_type           text NOT NULL,
	content                bytea NOT NULL,
	indexed_content        text,
	indexed_content_tsv    tsvector GENERATED ALWAYS AS (to_tsvector('english', coalesce(indexed_content, ''))) STORED,
	indexed_at             timestamptz,
	created_at             timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (id, conversation_group_id)
);

CREATE INDEX IF NOT EXISTS entries_conversation_idx ON entries (conversation_id, created_at);
CREATE INDEX IF NOT EXISTS entries_group_channel_idx ON entries (conversation_group_id, channel, created_at);
CREATE INDEX IF NOT EXISTS entries_memory_epoch_idx ON entries (conversation_id, client_id, epoch) WHERE channel = 'memory';
CREATE INDEX IF NOT EXISTS entries_tsv_idx ON entries USING gin (indexed_content_tsv);

CREATE TABLE IF NOT EXISTS conversation_ownership_transfers (
	id                     uuid PRIMARY KEY,
	conversation_group_id  uuid NOT NULL REFERENCES conversation_groups(id) ON DELETE CASCADE,
	from_user_id           text NOT NULL,
	to_user_id             text NOT NULL,
	created_at             timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS ownership_transfers_group_idx ON conversation_ownership_transfers (conversation_group_id);
CREATE INDEX IF NOT EXISTS ownership_transfers_to_user_idx ON conversation_ownership_transfers (to_user_id);

CREATE TABLE IF NOT EXISTS tasks (
	id          uuid PRIMARY KEY,
	task_name   text UNIQUE,
	task_type   text NOT NULL,
	task_body   jsonb NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now(),
	retry_at    timestamptz NOT NULL DEFAULT now(),
	last_error  text,
	retry_count int NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS tasks_retry_at_idx ON tasks (retry_at);

CREATE TABLE IF NOT EXISTS attachments (
	id                      uuid PRIMARY KEY,
	conversation_group_id   uuid REFERENCES conversation_groups(id) ON DELETE CASCADE,
	storage_key             text,
	filename                text,
	content_type            text NOT NULL,
	size                    bigint,
	sha256                  text,
	user_id                 text NOT NULL,
	entry_id                uuid,
	status                  text NOT NULL DEFAULT 'ready',
	created_at              timestamptz NOT NULL DEFAULT now(),
	deleted_at              timestamptz
);

CREATE INDEX IF NOT EXISTS attachments_group_idx ON attachments (conversation_group_id);

-- Wrapped-DEK storage for the vault/kms KEK-wrapping encryption providers
-- (see internal/plugin/encrypt/dekstore). One row per provider; revision
-- guards concurrent rotation writers with optimistic locking.
CREATE TABLE IF NOT EXISTS encryption_deks (
	provider     text PRIMARY KEY,
	wrapped_deks bytea[] NOT NULL,
	revision     bigint NOT NULL DEFAULT 0
);
`
