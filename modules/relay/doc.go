// Package relay wires the subscription registry, endpoint lifecycle and
// notification dispatcher into one mountable HTTP module.
//
// The service accepts both snake_case and camelCase request fields because
// the native and browser clients never agreed on a casing. Responses always
// carry a human-readable "message"; error responses add an "error" field.
package relay
