package database

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS users (
    id           BIGSERIAL PRIMARY KEY,
    telegram_id  BIGINT NOT NULL UNIQUE,
    first_name   VARCHAR(255) NOT NULL,
    last_name    VARCHAR(255),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bills (
    id                    BIGSERIAL PRIMARY KEY,
    user_id               BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name                  VARCHAR(255) NOT NULL,
    category              VARCHAR(100) NOT NULL DEFAULT '',
    description           TEXT NOT NULL DEFAULT '',
    amount                NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
    frequency             VARCHAR(20) NOT NULL DEFAULT 'MONTHLY',
    next_due_date         DATE,
    day_of_month_due      SMALLINT NOT NULL DEFAULT 0,
    is_paid               BOOLEAN NOT NULL DEFAULT FALSE,
    paid_date             TIMESTAMPTZ,
    reminder_days_before  INTEGER,
    reminder_hour         SMALLINT,
    reminder_minute       SMALLINT,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notifications (
    id          BIGSERIAL PRIMARY KEY,
    user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    message     TEXT NOT NULL,
    is_read     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bills_user ON bills(user_id);
CREATE INDEX IF NOT EXISTS idx_bills_next_due ON bills(next_due_date);
CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC);
`
