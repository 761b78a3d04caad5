package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create flows table
			CREATE TABLE flows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_flows_created_at ON flows(created_at);
			CREATE INDEX idx_flows_deleted_at ON flows(deleted_at);
		`,
		2: `
			-- Create executions table, written by the run engine
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				execution_data TEXT NOT NULL,
				state VARCHAR(50) NOT NULL CHECK (state IN ('INPROGRESS', 'FINISHED', 'ERROR', 'TERMINATED', 'TIMEOUT', 'STOPPED')),
				agentflow_id VARCHAR(255) NOT NULL,
				session_id VARCHAR(255) NOT NULL DEFAULT '',
				action TEXT NOT NULL DEFAULT '',
				is_public BOOLEAN NOT NULL DEFAULT FALSE,
				created_date TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_date TIMESTAMP WITH TIME ZONE NOT NULL,
				stopped_date TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_agentflow_id ON executions(agentflow_id);
			CREATE INDEX idx_executions_created_date ON executions(created_date);
			CREATE INDEX idx_executions_public ON executions(id) WHERE is_public;
		`,
	}
}
