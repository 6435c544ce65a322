package database

// Schema is the current schema as one statement block, applied directly by
// tests that use an in-memory database and skip the migration machinery.
// Keep in sync with the migration files.
const Schema = `
CREATE TABLE photos (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL,
    taken_at INTEGER NOT NULL,
    year_group TEXT NOT NULL,
    month_group TEXT NOT NULL,
    status INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_photos_year ON photos (year_group);
CREATE INDEX idx_photos_year_month ON photos (year_group, month_group);
CREATE INDEX idx_photos_status ON photos (status);

CREATE TABLE photo_groups (
    group_key TEXT NOT NULL,
    group_type TEXT NOT NULL,
    year_group TEXT NOT NULL,
    month_group TEXT NOT NULL DEFAULT '',
    latest_at INTEGER NOT NULL DEFAULT 0,
    earliest_at INTEGER NOT NULL DEFAULT 0,
    photo_count INTEGER NOT NULL DEFAULT 0,
    trash_count INTEGER NOT NULL DEFAULT 0,
    keep_count INTEGER NOT NULL DEFAULT 0,
    cover_path TEXT NOT NULL DEFAULT '',
    cover_id INTEGER NOT NULL DEFAULT 0,
    display_name TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (group_key, group_type)
);

CREATE INDEX idx_photo_groups_type ON photo_groups (group_type, latest_at);
`
