// Package config loads the supervisor's environment-variable configuration,
// following the teacher's convention (ingest/config/env.go): every variable
// also accepts a "_FILE"-suffixed sibling naming a file whose first line
// holds the value, so secrets can be mounted as files instead of passed as
// plaintext environment values.
package config

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
)

var errNoEnvArg = errors.New("no env arg")

// ErrEmptyEnvFile is returned when a "_FILE" variable points at an empty file.
var ErrEmptyEnvFile = errors.New("environment secret file is empty")

func loadEnvFile(nm string) (string, error) {
	fin, err := os.Open(nm)
	if err != nil {
		return "", err
	}
	defer fin.Close()
	s := bufio.NewScanner(fin)
	s.Scan()
	if err := s.Err(); err != nil {
		return "", err
	}
	r := s.Text()
	if r == "" {
		return "", ErrEmptyEnvFile
	}
	return r, nil
}

func loadEnv(nm string) (string, error) {
	if s, ok := os.LookupEnv(nm); ok {
		return s, nil
	}
	if fp, ok := os.LookupEnv(nm + "_FILE"); ok {
		return loadEnvFile(fp)
	}
	return "", errNoEnvArg
}

// String returns the value of name, or def if unset (and its "_FILE"
// sibling is also unset).
func String(name, def string) (string, error) {
	v, err := loadEnv(name)
	if err == errNoEnvArg {
		return def, nil
	}
	return v, err
}

// Bool parses name as a boolean (accepting true/false/1/0/yes/no,
// case-insensitive), or returns def if unset.
func Bool(name string, def bool) (bool, error) {
	v, err := loadEnv(name)
	if err == errNoEnvArg {
		return def, nil
	} else if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "yes", "y":
		return true, nil
	case "0", "f", "false", "no", "n":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

// Float64 parses name as a float, or returns def if unset.
func Float64(name string, def float64) (float64, error) {
	v, err := loadEnv(name)
	if err == errNoEnvArg {
		return def, nil
	} else if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

// Int parses name as an int, or returns def if unset.
func Int(name string, def int) (int, error) {
	v, err := loadEnv(name)
	if err == errNoEnvArg {
		return def, nil
	} else if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

// StringList splits name on commas, trimming whitespace and dropping empty
// elements; an unset variable yields a nil slice.
func StringList(name string) ([]string, error) {
	v, err := loadEnv(name)
	if err == errNoEnvArg {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}
