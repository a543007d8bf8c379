package ethdb

import "errors"

// ErrKeyNotFound is a sentinel for an absent key, in the style of the
// turbo-geth ethdb convention of checking errors.Is(err,
// ethdb.ErrKeyNotFound). The bolt-backed Bucket.Get in this package does
// not return it: it reports an absent key as (nil, nil).
var ErrKeyNotFound = errors.New("ethdb: key not found")

// ErrBucketNotFound is a sentinel for a table that was never created.
// The bolt-backed Tx.Bucket in this package does not return it: it
// reports a missing table as a nil Bucket.
var ErrBucketNotFound = errors.New("ethdb: bucket not found")
