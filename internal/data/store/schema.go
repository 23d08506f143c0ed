package store

// schema defines the application tables. The whatsmeow_* tables are owned
// and migrated by the whatsmeow sqlstore container.
const schema = `
CREATE TABLE IF NOT EXISTS wavault_sessions (
	id TEXT PRIMARY KEY,
	phone_number TEXT,
	ready INTEGER NOT NULL DEFAULT 0,
	qr TEXT,
	device_jid TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_phone ON wavault_sessions(phone_number);
CREATE INDEX IF NOT EXISTS idx_sessions_ready ON wavault_sessions(ready);

CREATE TABLE IF NOT EXISTS wavault_chats (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	name TEXT,
	phone_numbers TEXT,
	is_group INTEGER NOT NULL DEFAULT 0,
	last_message_id TEXT,
	last_message_timestamp INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	FOREIGN KEY (session_id) REFERENCES wavault_sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_chats_session ON wavault_chats(session_id);

CREATE TABLE IF NOT EXISTS wavault_messages (
	id TEXT PRIMARY KEY,
	chat_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	from_number TEXT,
	sender_id TEXT,
	sender_name TEXT,
	body TEXT,
	timestamp INTEGER NOT NULL,
	from_me INTEGER NOT NULL DEFAULT 0,
	has_media INTEGER NOT NULL DEFAULT 0,
	media_type TEXT,
	media_url TEXT,
	parent_id TEXT,
	status TEXT NOT NULL DEFAULT 'received',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_chat ON wavault_messages(chat_id);
CREATE INDEX IF NOT EXISTS idx_messages_session_ts ON wavault_messages(session_id, timestamp);

CREATE TABLE IF NOT EXISTS wavault_contacts (
	jid TEXT PRIMARY KEY,
	push_name TEXT,
	business_name TEXT,
	full_name TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS wavault_sync_state (
	session_id TEXT PRIMARY KEY,
	last_message_ts INTEGER NOT NULL DEFAULT 0,
	last_sync_at INTEGER NOT NULL DEFAULT 0
);
`
