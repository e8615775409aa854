// Package discord exposes the order and settings wizards, redeem codes and
// access administration as Discord slash commands, select menus, modals and
// buttons.
package discord
