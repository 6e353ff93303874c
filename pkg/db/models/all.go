package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Account{},
		&Menu{},
		&Commodity{},
		&CommodityOnMenu{},
		&CartLine{},
		&Order{},
		&OrderLine{},
		&LedgerTransaction{},
		&ExternalWallet{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
