// Package model defines the menu and order records shared by the store, the
// services and the HTTP API.
package model

import "github.com/shopspring/decimal"

func init() {
	// Money goes over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}
