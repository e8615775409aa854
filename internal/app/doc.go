// Package app wires the orderwizard service with fx: storage, the access
// ledger, the template catalog, mail, both wizards, the admin API and the
// Discord bot.
package app
