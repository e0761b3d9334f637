package domain

// Venue identifies one of the two trading counterparties tracked by the ledger.
type Venue string
