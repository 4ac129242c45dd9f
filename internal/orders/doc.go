// Package orders turns one operator request into per-source exchange calls:
// fan-out queries across the enabled adapters, single order lookups and
// batch cancellation with one result per requested order.
package orders
