package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	dataset TEXT NOT NULL,
	bars INTEGER NOT NULL,
	start_time DATETIME,
	end_time DATETIME,
	seed INTEGER NOT NULL,
	population INTEGER NOT NULL,
	generations INTEGER NOT NULL,
	evaluations INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	best_fitness REAL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	forced_closes INTEGER NOT NULL,
	start_balance REAL NOT NULL,
	end_balance REAL NOT NULL,
	return_pct REAL,
	max_dd_pct REAL,
	tree_path TEXT NOT NULL,
	mql_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS generations (
	run_id TEXT NOT NULL,
	gen INTEGER NOT NULL,
	evals INTEGER NOT NULL,
	avg REAL,
	std REAL,
	min REAL,
	max REAL,
	best REAL,
	invalid INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, gen)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_idx INTEGER NOT NULL,
	exit_idx INTEGER NOT NULL,
	open_time DATETIME,
	close_time DATETIME,
	entry_price REAL NOT NULL,
	stop_price REAL NOT NULL,
	take_price REAL NOT NULL,
	exit_price REAL,
	risk REAL NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
`
