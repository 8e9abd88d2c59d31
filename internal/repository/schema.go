package repository

// Schema definitions for the Pulse database.
// Compatible with both SQLite and PostgreSQL.

// schemaAssessments stores one row per scored submission. answers and
// response hold the JSON documents as returned to the caller.
const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT NOT NULL,
    institution_id TEXT NOT NULL,
    answers TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    risk_probability REAL NOT NULL,
    confidence TEXT NOT NULL,
    response TEXT NOT NULL,
    trace_id TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (institution_id, id)
);

CREATE INDEX IF NOT EXISTS idx_assessments_created ON assessments(institution_id, created_at);
CREATE INDEX IF NOT EXISTS idx_assessments_risk ON assessments(institution_id, risk_level);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAssessments,
	}
}
