package postgres

// Schema is the ledger's relational layout. Applied by tests and by the ops
// bootstrap script; there is no migration tooling here.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	membership_type TEXT,
	membership_no TEXT UNIQUE,
	is_boa_member BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS seminars (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fee_categories (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fee_slabs (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS registrations (
	id UUID PRIMARY KEY,
	registration_no TEXT NOT NULL,
	user_id UUID NOT NULL REFERENCES users (id),
	seminar_id UUID NOT NULL REFERENCES seminars (id),
	category_id UUID NOT NULL REFERENCES fee_categories (id),
	slab_id UUID NOT NULL REFERENCES fee_slabs (id),
	delegate_type TEXT NOT NULL CHECK (delegate_type IN
		('boa-member', 'non-boa-member', 'accompanying-person')),
	amount NUMERIC(12, 2) NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed')),
	payment_method TEXT,
	payment_date TIMESTAMPTZ,
	gateway_order_id TEXT,
	gateway_payment_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, seminar_id)
);

CREATE TABLE IF NOT EXISTS additional_persons (
	id UUID PRIMARY KEY,
	registration_id UUID NOT NULL REFERENCES registrations (id),
	name TEXT NOT NULL,
	category_id UUID NOT NULL REFERENCES fee_categories (id),
	slab_id UUID NOT NULL REFERENCES fee_slabs (id),
	amount NUMERIC(12, 2) NOT NULL
);

CREATE TABLE IF NOT EXISTS membership_registrations (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users (id),
	membership_type TEXT NOT NULL,
	membership_no TEXT NOT NULL,
	amount NUMERIC(12, 2) NOT NULL,
	gateway_ref TEXT,
	status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pending_payments (
	transaction_id TEXT PRIMARY KEY,
	user_id UUID NOT NULL,
	membership_type TEXT NOT NULL,
	amount NUMERIC(12, 2) NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending', 'verified')),
	gateway_ref TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	verified_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id UUID NOT NULL,
	event_type TEXT NOT NULL,
	payload_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
	dedupe_key TEXT NOT NULL
);
`
