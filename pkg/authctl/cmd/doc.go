// Package cmd wires the authctl command tree: login, logout, token, session,
// version, and completion.
package cmd
