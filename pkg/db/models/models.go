package models

// All lists every persisted model. Used by the SQLite schema bootstrap.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&Article{},
		&Review{},
		&Order{},
		&Setting{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
