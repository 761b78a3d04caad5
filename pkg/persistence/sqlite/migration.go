package sqlite

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				nodes TEXT NOT NULL DEFAULT '[]',
				edges TEXT NOT NULL DEFAULT '[]',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				deleted_at TIMESTAMP
			);

			CREATE INDEX idx_flows_created_at ON flows(created_at);
		`,
		2: `
			CREATE TABLE executions (
				id TEXT PRIMARY KEY,
				execution_data TEXT NOT NULL,
				state TEXT NOT NULL,
				agentflow_id TEXT NOT NULL,
				session_id TEXT NOT NULL DEFAULT '',
				action TEXT NOT NULL DEFAULT '',
				is_public BOOLEAN NOT NULL DEFAULT 0,
				created_date TIMESTAMP NOT NULL,
				updated_date TIMESTAMP NOT NULL,
				stopped_date TIMESTAMP
			);

			CREATE INDEX idx_executions_agentflow_id ON executions(agentflow_id);
		`,
	}
}
