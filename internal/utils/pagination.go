// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"fmt"
	"strconv"
)

// ParseIntDefault parses an optional query integer: an absent (empty)
// value yields def, a present value must parse as a base-10 integer.
//
// Example:
//
//	n, _ := utils.ParseIntDefault("", 50)   // 50, nil
//	n, _ = utils.ParseIntDefault("7", 50)   // 7, nil
//	_, err := utils.ParseIntDefault("x", 5) // err != nil
func ParseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}
