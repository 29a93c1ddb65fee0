package redisutils

import (
	"fmt"
	"strconv"
)

// FormatID() formats a nodeID (uint32) into a string
func FormatID(ID uint32) string {
	return strconv.FormatUint(uint64(ID), 10)
}

// FormatPaddedID() formats a nodeID (uint32) into a string of 10 digits, left-padded
// with zeros. Lexicographic order of padded IDs matches their numeric order.
func FormatPaddedID(ID uint32) string {
	return fmt.Sprintf("%010d", ID)
}

// FormatIDs() formats a slice of nodeIDs into a slice of strings
func FormatIDs(IDs []uint32) []string {
	strIDs := make([]string, len(IDs))
	for i, ID := range IDs {
		strIDs[i] = FormatID(ID)
	}
	return strIDs
}

// ParseID() parses a nodeID (uint32) from the specified string
func ParseID(strVal string) (uint32, error) {
	parsedVal, err := strconv.ParseUint(strVal, 10, 32)
	return uint32(parsedVal), err
}

// ParseIDs() parses a slice of nodeIDs from the specified strings
func ParseIDs(strVals []string) ([]uint32, error) {
	IDs := make([]uint32, 0, len(strVals))
	for _, str := range strVals {
		ID, err := ParseID(str)
		if err != nil {
			return nil, err
		}
		IDs = append(IDs, ID)
	}
	return IDs, nil
}
