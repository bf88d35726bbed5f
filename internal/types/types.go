// Package types contains the address and parameter value types shared by the uri and header packages.
package types

//go:generate go tool errtrace -w .
