// Package types contains the firewall rule model and the engine interface used
// throughout the application. These are defined separately from the engine
// implementations so that packages that classify packets don't need to depend
// on a specific index layout.
package types
