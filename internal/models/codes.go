package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LeadCode formats the public lead identifier, e.g. L-2025-0042.
func LeadCode(year int, seq int64) string {
	return fmt.Sprintf("L-%d-%04d", year, seq)
}

var storeCodes = map[string]string{
	"palakkad":  "PLK",
	"ernakulam": "ERN",
	"azhapula":  "AZH",
	"trissur":   "TRS",
}

// StoreCode maps a store name to the code used in sales executive ids.
func StoreCode(store string) string {
	if code, ok := storeCodes[strings.ToLower(strings.TrimSpace(store))]; ok {
		return code
	}
	return "UNK"
}

var locationNoise = regexp.MustCompile(`(?i)\b(store|branch|office)\b`)

// LocationCode is the first three letters of a store name once generic
// words are dropped, "GEN" when nothing is left.
func LocationCode(store string) string {
	cleaned := strings.TrimSpace(locationNoise.ReplaceAllString(store, ""))
	if cleaned == "" {
		return "GEN"
	}
	runes := []rune(cleaned)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return strings.ToUpper(string(runes))
}

// SalesExecutivePrefix is the username prefix for sales executives of store.
func SalesExecutivePrefix(store string) string {
	return "SE-" + StoreCode(store) + "-"
}

// StaffPrefix is the staff id prefix for a team lead ("TL") or store
// manager ("SM") of store.
func StaffPrefix(roleCode, store string) string {
	return roleCode + "-" + LocationCode(store) + "-"
}

// NextSequenceID returns prefix followed by one more than the highest
// three digit suffix found among existing ids with that prefix.
func NextSequenceID(prefix string, existing []string) string {
	highest := 0
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}
