package hash

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dinodb/pkg/repl"
)

// HashRepl creates a hash index REPL for testing the int64/int64 HashIndex with.
func HashRepl() (*repl.REPL, error) {
	index, err := OpenTable("data/hash.tmp")
	if err != nil {
		return nil, err
	}
	r := repl.NewRepl()

	r.AddCommand("hash_insert", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleInsert(index, payload)
	}, "Inserts a key/value pair. usage: hash_insert <key> <value>")

	r.AddCommand("hash_find", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleFind(index, payload)
	}, "Finds the value for a given key. usage: hash_find <key>")

	r.AddCommand("hash_remove", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleRemove(index, payload)
	}, "Removes a key. usage: hash_remove <key>")

	r.AddCommand("hash_print", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandlePrint(index, payload)
	}, "Prints out the entire hash index. usage: hash_print")

	r.AddCommand("hash_print_pn", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandlePrintPN(index, payload)
	}, "Prints out a single page of the hash index. usage: hash_print_pn <page_num>")

	r.AddCommand("hash_verify", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleVerify(index)
	}, "Verifies the hash index's structural invariants. usage: hash_verify")

	return r, nil
}

func HandleInsert(index *HashIndex[int64, int64], payload string) error {
	fields := strings.Fields(payload)
	if len(fields) != 3 {
		return errors.New("usage: hash_insert <key> <value>")
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return err
	}
	value, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return err
	}
	inserted, err := index.Insert(key, value)
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("key %d already exists", key)
	}
	return nil
}

func HandleFind(index *HashIndex[int64, int64], payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: hash_find <key>")
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", err
	}
	value, found, err := index.GetValue(key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("key %d not found", key)
	}
	return fmt.Sprintf("(%d, %d)", key, value), nil
}

func HandleRemove(index *HashIndex[int64, int64], payload string) error {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return errors.New("usage: hash_remove <key>")
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return err
	}
	removed, err := index.Remove(key)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("key %d not found", key)
	}
	return nil
}

func HandlePrint(index *HashIndex[int64, int64], payload string) (string, error) {
	if len(strings.Fields(payload)) != 1 {
		return "", errors.New("usage: hash_print")
	}
	w := new(strings.Builder)
	if err := index.PrintHT(w); err != nil {
		return "", err
	}
	return w.String(), nil
}

func HandlePrintPN(index *HashIndex[int64, int64], payload string) (string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return "", errors.New("usage: hash_print_pn <page_num>")
	}
	pagenum, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", err
	}
	w := new(strings.Builder)
	if err := index.PrintPN(pagenum, w); err != nil {
		return "", err
	}
	return w.String(), nil
}

func HandleVerify(index *HashIndex[int64, int64]) error {
	return index.VerifyIntegrity()
}
