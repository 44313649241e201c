package pgstore

// Schema is the DDL for the metadata tables. Package-owned entries live in
// metadata_entries under the package's own subject ref ("package/<id>"), so
// one table holds every entry history.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata_keys (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    allow_multiple BOOLEAN NOT NULL DEFAULT FALSE,
    cache_ttl_seconds BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS metadata_entries (
    id BIGSERIAL PRIMARY KEY,
    subject_ref TEXT NOT NULL,
    strand TEXT NOT NULL,
    key_id BIGINT NOT NULL REFERENCES metadata_keys(id),
    value TEXT NOT NULL,
    effective_from TIMESTAMPTZ NOT NULL,
    effective_to TIMESTAMPTZ,
    creator UUID NOT NULL,
    approver UUID
);

CREATE INDEX IF NOT EXISTS metadata_entries_subject_strand
    ON metadata_entries (subject_ref, strand, key_id, effective_from DESC);

CREATE TABLE IF NOT EXISTS metadata_packages (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS metadata_attachments (
    id BIGSERIAL PRIMARY KEY,
    subject_ref TEXT NOT NULL,
    package_id BIGINT NOT NULL REFERENCES metadata_packages(id),
    effective_from TIMESTAMPTZ,
    effective_to TIMESTAMPTZ,
    creator UUID NOT NULL,
    approver UUID
);

CREATE INDEX IF NOT EXISTS metadata_attachments_subject
    ON metadata_attachments (subject_ref);
`
