// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing types, registries and live instances. They
// are not intended for production usage.
package testutil
