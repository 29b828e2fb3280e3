package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				owner_id TEXT NOT NULL,
				kind VARCHAR(50) NOT NULL CHECK (kind IN ('personal', 'cross_user')),
				is_public BOOLEAN NOT NULL DEFAULT FALSE,
				shared_with JSONB NOT NULL DEFAULT '[]',
				editor_ids JSONB NOT NULL DEFAULT '[]',
				triggers JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_owner_id ON workflows(owner_id);
			CREATE INDEX idx_workflows_shared_with ON workflows USING GIN (shared_with);

			CREATE TABLE executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				trigger_user_id TEXT NOT NULL,
				trigger_type VARCHAR(50) NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE NOT NULL,
				success BOOLEAN NOT NULL,
				action_outcomes JSONB NOT NULL DEFAULT '[]',
				message TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_started_at ON executions(started_at);

			CREATE TABLE schedules (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				trigger_id TEXT NOT NULL UNIQUE,
				cron_expression VARCHAR(255) NOT NULL,
				next_due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_fired_at TIMESTAMP WITH TIME ZONE,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_schedules_next_due_at ON schedules(next_due_at) WHERE active;

			CREATE TABLE workflow_users (
				id TEXT PRIMARY KEY,
				email VARCHAR(255) NOT NULL DEFAULT '',
				display_name VARCHAR(255) NOT NULL DEFAULT '',
				chat_identity VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_workflow_users_chat_identity
				ON workflow_users(chat_identity) WHERE chat_identity IS NOT NULL;

			CREATE TABLE dedup_claims (
				event_key TEXT PRIMARY KEY,
				processed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_dedup_claims_processed_at ON dedup_claims(processed_at);
		`,
	}
}
