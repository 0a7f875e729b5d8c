// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package pax assembles and parses PAX extended header records (type 'x'
// local and 'g' global) and GNU long-name/long-link records (type 'L'/'K',
// path "././@LongLink"), the data-region payloads that let ustar headers
// carry names and sizes the fixed-width block can't hold.
package pax
