// Package cli implements the interactive collector console.
//
// The REPL (see runREPL) reads one command per line and dispatches to
// the App, which wires the local replica store, the reconciliation
// engine, the sync engine, and the receipt printer together. Commands:
//
//	clients | l   — list the collector's route
//	today         — clients whose payment day is today
//	cobrar        — record a payment (interactive prompts)
//	visita        — record a delinquency note
//	sync          — pull clients and push the outbox now
//	status        — queue counts, last sync, printer state
//	printer       — connect (or reconnect) the receipt printer
//	reprint       — print a stored payment again
//	exit | quit   — leave the program
//
// Recording works fully offline; sync failures never block the
// collector from taking money.
package cli
