// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pax

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/luci/luci-go/common/errors"
)

// Records is a set of PAX key/value attributes, as carried by one 'x' (local)
// or 'g' (global) extended header.
type Records map[string]string

// Keys recognized on read; unknown keys are ignored per spec.
const (
	KeyPath     = "path"
	KeyLinkpath = "linkpath"
	KeySize     = "size"
)

// Marshal renders r as a sequence of PAX records in lexicographic key order,
// ready to be the data region of an 'x' or 'g' header.
func Marshal(r Records) []byte {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		buf.Write(marshalRecord(k, r[k]))
	}
	return buf.Bytes()
}

// marshalRecord renders a single "<len> <key>=<value>\n" record. len counts
// the entire record, including its own decimal digits, so it is computed by
// fixed-point iteration: growing the digit count can grow len itself.
func marshalRecord(key, value string) []byte {
	// "<len> " + key + "=" + value + "\n"
	fixedLen := len(" ") + len(key) + len("=") + len(value) + len("\n")
	n := fixedLen + 1 // seed with a 1-digit length
	for {
		digits := len(strconv.Itoa(n))
		total := digits + fixedLen
		if total == n {
			break
		}
		n = total
	}
	return []byte(fmt.Sprintf("%d %s=%s\n", n, key, value))
}

// Parse splits a PAX data region into its records, merging them into dst (so
// callers can fold an 'x' header onto a running 'g' global map, or vice
// versa). Parsing stops at the first malformed record, which is reported as
// an error; records before it have already been merged into dst.
func Parse(data []byte, dst Records) error {
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return errors.New("pax record missing length/key separator")
		}
		n, err := strconv.Atoi(string(data[:sp]))
		if err != nil || n <= sp {
			return errors.Reason("pax record has invalid length %(raw)q").
				D("raw", string(data[:sp])).Err()
		}
		if n > len(data) {
			return errors.Reason("pax record length %(n)d exceeds remaining data %(have)d").
				D("n", n).D("have", len(data)).Err()
		}
		record := data[:n]
		if record[n-1] != '\n' {
			return errors.New("pax record not newline-terminated")
		}
		kv := record[sp+1 : n-1]
		eq := bytes.IndexByte(kv, '=')
		if eq < 0 {
			return errors.New("pax record missing '='")
		}
		dst[string(kv[:eq])] = string(kv[eq+1:])
		data = data[n:]
	}
	return nil
}
