package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one landing page draft and everything derived from it.
-- Nested records are JSON text; timestamps are RFC 3339 UTC.
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    stage TEXT NOT NULL DEFAULT 'DRAFT',

    meta_title TEXT NOT NULL DEFAULT '',
    meta_description TEXT NOT NULL DEFAULT '',
    landing_text TEXT NOT NULL DEFAULT '',
    primary_keyword TEXT NOT NULL DEFAULT '',
    supporting_keywords TEXT NOT NULL DEFAULT '[]',
    intent TEXT NOT NULL DEFAULT '',
    h1 TEXT NOT NULL DEFAULT '',
    body_html TEXT NOT NULL DEFAULT '',
    cta TEXT NOT NULL DEFAULT '',
    faq TEXT NOT NULL DEFAULT '[]',
    canonical_url TEXT NOT NULL DEFAULT '',
    og_title TEXT NOT NULL DEFAULT '',
    og_description TEXT NOT NULL DEFAULT '',
    buy_url TEXT NOT NULL DEFAULT '',
    products TEXT NOT NULL DEFAULT '[]',

    optimize_json TEXT,
    qc_json TEXT,
    approved_json TEXT,
    audit_json TEXT,
    audit_overall TEXT,          -- denormalised from audit_json for filtering
    audit_score INTEGER,
    fixed_json TEXT,
    fix_diff_json TEXT,
    export_json TEXT,

    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_runs_updated ON runs(updated_at);
CREATE INDEX IF NOT EXISTS idx_runs_overall ON runs(audit_overall);

-- Events: A/B views and CTA clicks
CREATE TABLE IF NOT EXISTS events (
    event_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    variant TEXT NOT NULL CHECK (variant IN ('A', 'B')),
    event_name TEXT NOT NULL CHECK (event_name IN ('view', 'cta_click')),
    ts TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);

-- Job logs: one row per pipeline operation
CREATE TABLE IF NOT EXISTS job_logs (
    job_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    job_name TEXT NOT NULL,
    status TEXT NOT NULL,        -- OK, WARN, ERR
    detail_json TEXT NOT NULL DEFAULT '{}',
    elapsed_ms INTEGER NOT NULL DEFAULT 0,
    ts TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_job_logs_run ON job_logs(run_id, job_id);
`
