// Package utils holds small helpers shared across packages, mainly the
// conversions used to read loosely typed column values coming back from
// the SQL drivers.
package utils
